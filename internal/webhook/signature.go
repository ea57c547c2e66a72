package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
)

// VerifyResult 验签结果
type VerifyResult int

const (
	VerifyAuthentic VerifyResult = iota
	VerifyForged
	VerifyMissingSignature
	VerifyNotConfigured
)

func (r VerifyResult) String() string {
	switch r {
	case VerifyAuthentic:
		return "authentic"
	case VerifyForged:
		return "forged"
	case VerifyMissingSignature:
		return "missing_signature"
	case VerifyNotConfigured:
		return "not_configured"
	}
	return "unknown"
}

// HTTPStatus 验签结果对应的 HTTP 状态码
func (r VerifyResult) HTTPStatus() int {
	switch r {
	case VerifyAuthentic:
		return http.StatusOK
	case VerifyForged, VerifyMissingSignature:
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

const signaturePrefix = "sha256="

// Verifier 使用预共享密钥校验回调签名（hex 编码的 HMAC-SHA256）
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Configured 是否已配置密钥
func (v *Verifier) Configured() bool {
	return len(v.secret) > 0
}

// Verify 对原始请求体验签，必须在任何解析之前调用
func (v *Verifier) Verify(body []byte, signature string) VerifyResult {
	if !v.Configured() {
		return VerifyNotConfigured
	}

	// 十六进制大小写不敏感
	signature = strings.ToLower(strings.TrimSpace(signature))
	signature = strings.TrimPrefix(signature, signaturePrefix)
	if signature == "" {
		return VerifyMissingSignature
	}

	expected := computeHex(body, v.secret)
	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return VerifyForged
	}
	return VerifyAuthentic
}

// Sign 计算请求体签名
func Sign(body []byte, secret string) string {
	return computeHex(body, []byte(secret))
}

func computeHex(body, secret []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
