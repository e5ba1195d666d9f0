package media

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
)

// Imgproxy signs resize URLs for an imgproxy deployment. With no base URL it
// returns the source URL untouched.
type Imgproxy struct {
	BaseURL string
	key     []byte
	salt    []byte
}

func NewImgproxy(baseURL, hexKey, hexSalt string) (*Imgproxy, error) {
	p := &Imgproxy{BaseURL: strings.TrimRight(baseURL, "/")}
	if hexKey == "" && hexSalt == "" {
		return p, nil
	}
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("imgproxy key: %w", err)
	}
	salt, err := hex.DecodeString(hexSalt)
	if err != nil {
		return nil, fmt.Errorf("imgproxy salt: %w", err)
	}
	p.key, p.salt = key, salt
	return p, nil
}

func (p *Imgproxy) Resize(sourceURL string, width, height int) string {
	if p == nil || p.BaseURL == "" || sourceURL == "" {
		return sourceURL
	}
	path := fmt.Sprintf("/rs:fit:%d:%d/%s", width, height, base64.RawURLEncoding.EncodeToString([]byte(sourceURL)))
	return p.BaseURL + "/" + p.sign(path) + path
}

func (p *Imgproxy) sign(path string) string {
	if len(p.key) == 0 {
		return "insecure"
	}
	mac := hmac.New(sha256.New, p.key)
	mac.Write(p.salt)
	mac.Write([]byte(path))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
