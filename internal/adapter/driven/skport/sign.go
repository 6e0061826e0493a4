package skport

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Request header constants shared by every SKPort call.
const (
	headerPlatform = "3"
	headerVName    = "1.0.0"
)

// Sign computes the v2 request signature: HMAC-SHA256 of
// path+body+timestamp+headerJSON keyed by the sign token, hex-encoded, then
// MD5 of that hex string. The header JSON is rebuilt here rather than taken
// from the request because the server recomputes it with this exact key
// order and no whitespace.
func Sign(signToken, path, body, timestamp string) string {
	headerJSON := fmt.Sprintf(`{"platform":%q,"timestamp":%q,"dId":"","vName":%q}`,
		headerPlatform, timestamp, headerVName)

	mac := hmac.New(sha256.New, []byte(signToken))
	mac.Write([]byte(path + body + timestamp + headerJSON))
	hexDigest := hex.EncodeToString(mac.Sum(nil))

	sum := md5.Sum([]byte(hexDigest))
	return hex.EncodeToString(sum[:])
}
