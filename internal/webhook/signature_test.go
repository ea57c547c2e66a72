package webhook

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const testSecret = "whsec_test"

var testBody = []byte(`{"event":"subscription.charged","payload":{}}`)

func TestVerifier_Verify(t *testing.T) {
	v := NewVerifier(testSecret)
	valid := Sign(testBody, testSecret)

	tests := []struct {
		name      string
		body      []byte
		signature string
		want      VerifyResult
	}{
		{"valid signature", testBody, valid, VerifyAuthentic},
		{"valid signature with prefix", testBody, "sha256=" + valid, VerifyAuthentic},
		{"valid signature with whitespace", testBody, " " + valid + "\n", VerifyAuthentic},
		{"missing signature", testBody, "", VerifyMissingSignature},
		{"prefix only", testBody, "sha256=", VerifyMissingSignature},
		{"wrong secret", testBody, Sign(testBody, "other"), VerifyForged},
		{"not hex", testBody, "zzzz", VerifyForged},
		{"uppercase hex", testBody, strings.ToUpper(valid), VerifyAuthentic},
		{"uppercase hex with prefix", testBody, "SHA256=" + strings.ToUpper(valid), VerifyAuthentic},
		{"uppercase hex wrong secret", testBody, strings.ToUpper(Sign(testBody, "other")), VerifyForged},
		{"body changed", append([]byte{}, append(testBody, ' ')...), valid, VerifyForged},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, v.Verify(tt.body, tt.signature))
		})
	}
}

func TestVerifier_NotConfigured(t *testing.T) {
	v := NewVerifier("")
	assert.False(t, v.Configured())

	// 未配置密钥时无论签名如何都拒绝
	assert.Equal(t, VerifyNotConfigured, v.Verify(testBody, Sign(testBody, "")))
	assert.Equal(t, VerifyNotConfigured, v.Verify(testBody, ""))
}

func TestVerifier_SingleBitMutation(t *testing.T) {
	v := NewVerifier(testSecret)
	sig := Sign(testBody, testSecret)

	for i := range testBody {
		for bit := 0; bit < 8; bit++ {
			mutated := append([]byte{}, testBody...)
			mutated[i] ^= 1 << bit
			assert.Equal(t, VerifyForged, v.Verify(mutated, sig), "body byte %d bit %d", i, bit)
		}
	}

	for i := range sig {
		for bit := 0; bit < 8; bit++ {
			mutated := []byte(sig)
			mutated[i] ^= 1 << bit
			// 只改变字母大小写的翻转与原签名等价
			if strings.EqualFold(string(mutated), sig) {
				continue
			}
			got := v.Verify(testBody, string(mutated))
			// 翻转后可能变为空白被裁剪，但绝不能通过
			assert.NotEqual(t, VerifyAuthentic, got, "signature byte %d bit %d", i, bit)
		}
	}
}

func TestVerifyResult_HTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusOK, VerifyAuthentic.HTTPStatus())
	assert.Equal(t, http.StatusUnauthorized, VerifyForged.HTTPStatus())
	assert.Equal(t, http.StatusUnauthorized, VerifyMissingSignature.HTTPStatus())
	assert.Equal(t, http.StatusInternalServerError, VerifyNotConfigured.HTTPStatus())
}

func TestVerifyResult_String(t *testing.T) {
	assert.Equal(t, "authentic", VerifyAuthentic.String())
	assert.Equal(t, "forged", VerifyForged.String())
	assert.Equal(t, "missing_signature", VerifyMissingSignature.String())
	assert.Equal(t, "not_configured", VerifyNotConfigured.String())
}
