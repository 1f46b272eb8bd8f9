package newebpay

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"
)

// Encrypt returns the lower-case hex AES-256-CBC ciphertext of plain with
// PKCS7 padding.
func (c *Client) Encrypt(plain string) (string, error) {
	if !c.configured() {
		return "", ErrNotConfigured
	}
	src := pkcs7Pad([]byte(plain), aes.BlockSize)
	dst := make([]byte, len(src))
	cipher.NewCBCEncrypter(c.block, []byte(c.cfg.HashIV)).CryptBlocks(dst, src)
	return hex.EncodeToString(dst), nil
}

// Decrypt reverses Encrypt without trusting the padding: the gateway pads
// with control bytes, which are stripped along with any other control
// characters.
func (c *Client) Decrypt(cipherHex string) (string, error) {
	if !c.configured() {
		return "", ErrNotConfigured
	}
	raw, err := hex.DecodeString(strings.TrimSpace(cipherHex))
	if err != nil {
		return "", fmt.Errorf("%w: hex: %v", ErrMalformedTradeInfo, err)
	}
	if len(raw) == 0 || len(raw)%aes.BlockSize != 0 {
		return "", fmt.Errorf("%w: ciphertext length %d", ErrMalformedTradeInfo, len(raw))
	}
	dst := make([]byte, len(raw))
	cipher.NewCBCDecrypter(c.block, []byte(c.cfg.HashIV)).CryptBlocks(dst, raw)
	return stripControl(dst), nil
}

// TradeSha is SHA256("HashKey=<key>&<cipher>&HashIV=<iv>") in upper-case hex.
func (c *Client) TradeSha(cipherHex string) string {
	sum := sha256.Sum256([]byte("HashKey=" + c.cfg.HashKey + "&" + cipherHex + "&HashIV=" + c.cfg.HashIV))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

func (c *Client) VerifyTradeSha(cipherHex, tradeSha string) bool {
	want := c.TradeSha(cipherHex)
	got := strings.ToUpper(strings.TrimSpace(tradeSha))
	return subtle.ConstantTimeCompare([]byte(want), []byte(got)) == 1
}

func pkcs7Pad(b []byte, size int) []byte {
	n := size - len(b)%size
	return append(b, bytes.Repeat([]byte{byte(n)}, n)...)
}

func stripControl(b []byte) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, string(b))
}
