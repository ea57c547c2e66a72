package oss

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDeliverableKey(t *testing.T) {
	at := time.Unix(0, 42)

	assert.Equal(t, "deliverables/7/42_logo.png", DeliverableKey(7, "logo.png", at))
	assert.Equal(t, "deliverables/7/42_passwd", DeliverableKey(7, "../../etc/passwd", at))
	assert.Equal(t, "deliverables/7/42_report.pdf", DeliverableKey(7, `C:\tmp\report.pdf`, at))
	assert.Equal(t, "deliverables/7/42_file", DeliverableKey(7, "", at))
}

func TestGetContentType(t *testing.T) {
	assert.Equal(t, "application/pdf", getContentType(".pdf"))
	assert.Equal(t, "application/zip", getContentType(".zip"))
	assert.Equal(t, "image/jpeg", getContentType(".jpeg"))
	assert.Equal(t, "application/octet-stream", getContentType(".exe"))
}

func TestClient_GetURL_CDN(t *testing.T) {
	c := &Client{bucketName: "bucket", cdnDomain: "cdn.example.com"}
	assert.Equal(t, "https://cdn.example.com/deliverables/1/a.zip", c.GetURL("deliverables/1/a.zip"))
}
