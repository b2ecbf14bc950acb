package user

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/genzugar/backend/core"
)

// Password reset tokens look like "<issued-at>.<mac>": the issue time in base36 unix seconds, and an HMAC
// over the user's ID, password hash and last login. Changing the password or logging in voids the token.

var (
	tokenKeySalt = "genzugar/user/password-reset"
	nowFunc      = time.Now

	errInvalidToken = errors.New("invalid token")
	errTokenExpired = errors.New("token expired")
)

// EncodeUID encodes the user ID for use in a password reset link.
func EncodeUID(usr User) string {
	return base64.RawURLEncoding.EncodeToString([]byte(usr.ID))
}

func decodeUID(uid string) (string, error) {
	id, err := base64.RawURLEncoding.DecodeString(uid)
	if err != nil {
		return "", errors.Wrap(err, "decoding uid")
	}
	return string(id), nil
}

func makeToken(usr User) string {
	issuedAt := nowFunc().Unix()
	return strconv.FormatInt(issuedAt, 36) + "." + tokenMAC(usr, issuedAt)
}

func verifyToken(usr User, token string) error {
	stamp, mac, found := strings.Cut(token, ".")
	if !found || stamp == "" || mac == "" {
		return errInvalidToken
	}
	issuedAt, err := strconv.ParseInt(stamp, 36, 64)
	if err != nil || issuedAt <= 0 {
		return errInvalidToken
	}
	if !hmac.Equal([]byte(mac), []byte(tokenMAC(usr, issuedAt))) {
		return errInvalidToken
	}
	if nowFunc().Sub(time.Unix(issuedAt, 0)) > core.Conf.Server.PasswordResetTimeoutDelta {
		return errTokenExpired
	}
	return nil
}

func tokenMAC(usr User, issuedAt int64) string {
	key := sha256.Sum256([]byte(tokenKeySalt + core.Conf.SecretKey))
	h := hmac.New(sha256.New, key[:])

	var stamp [8]byte
	binary.BigEndian.PutUint64(stamp[:], uint64(issuedAt))
	h.Write(stamp[:])
	h.Write([]byte(usr.ID))
	h.Write(usr.PasswordHash)
	if usr.LastLogin.Valid {
		h.Write([]byte(usr.LastLogin.Time.UTC().Truncate(time.Second).Format(time.RFC3339)))
	}
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}
