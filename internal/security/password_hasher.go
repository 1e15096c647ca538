package security

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"

	"golang.org/x/crypto/pbkdf2"
)

// Parâmetros de hashing de senha (compatíveis com os registros existentes)
const (
	PasswordAlgo       = "pbkdf2_sha256"
	PasswordIterations = 600_000
	passwordSaltBytes  = 16
	passwordKeyBytes   = 32
	minPasswordLength  = 8
)

// HashedPassword agrupa o resultado do hashing
type HashedPassword struct {
	Hash       string
	Salt       string
	Algo       string
	Iterations int
}

// HashPassword deriva o hash PBKDF2-SHA256 de uma senha nova
func HashPassword(password string) (*HashedPassword, error) {
	if len(password) < minPasswordLength {
		return nil, fmt.Errorf("senha inválida (mín. %d caracteres)", minPasswordLength)
	}

	salt := make([]byte, passwordSaltBytes)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("error generating salt: %w", err)
	}

	dk := pbkdf2.Key([]byte(password), salt, PasswordIterations, passwordKeyBytes, sha256.New)

	return &HashedPassword{
		Hash:       base64.StdEncoding.EncodeToString(dk),
		Salt:       base64.StdEncoding.EncodeToString(salt),
		Algo:       PasswordAlgo,
		Iterations: PasswordIterations,
	}, nil
}

// VerifyPassword compara a senha com o hash armazenado em tempo constante
func VerifyPassword(password, storedHash, storedSalt string, iterations int, algo string) bool {
	if algo != PasswordAlgo && algo != "pbkdf2" {
		return false
	}

	salt, err := base64.StdEncoding.DecodeString(storedSalt)
	if err != nil {
		return false
	}
	expected, err := base64.StdEncoding.DecodeString(storedHash)
	if err != nil {
		return false
	}

	dk := pbkdf2.Key([]byte(password), salt, iterations, len(expected), sha256.New)
	return hmac.Equal(dk, expected)
}

// HashToken retorna o sha256 hex de um token opaco (refresh tokens)
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return fmt.Sprintf("%x", sum)
}

func formatSubject(userID int64) string {
	return strconv.FormatInt(userID, 10)
}

func parseSubject(subject string) (int64, error) {
	return strconv.ParseInt(subject, 10, 64)
}
