package kling

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
)

// tokenTTL is how long a signed API token stays valid
const tokenTTL = 30 * time.Minute

// createJWTToken creates the HS256 token Kling expects as bearer credential
func createJWTToken(accessKey, secretKey string, now time.Time) (string, error) {
	if accessKey == "" || secretKey == "" {
		return "", fmt.Errorf("access key and secret key are required")
	}

	claims := jwt.MapClaims{
		"iss": accessKey,
		"exp": now.Add(tokenTTL).Unix(),
		"nbf": now.Add(-5 * time.Second).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["typ"] = "JWT"
	return token.SignedString([]byte(secretKey))
}
