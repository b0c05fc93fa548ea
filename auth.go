package main

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

const (
	reconnectTokenExpiry = 24 * time.Hour
	bcryptCost           = 12
	minPasswordLen       = 4
	loginRateWindow      = 60 * time.Second
	maxLoginAttempts     = 10

	settingJWTSecret = "jwt_secret"
)

var errTokenName = errors.New("token issued for another name")

// Auth issues reconnect tokens and checks admin credentials
type Auth struct {
	jwtSecret []byte
	adminUser string
	adminHash []byte
	log       zerolog.Logger

	// Rate limiting for admin login attempts (IP -> attempts)
	rateMu  sync.Mutex
	rateMap map[string]*rateEntry
}

type rateEntry struct {
	Count   int
	ResetAt time.Time
}

// NewAuth creates a new Auth handler. secretHex overrides the stored secret;
// db may be nil, in which case a fresh secret is generated for this process.
func NewAuth(db *DB, secretHex, adminUser, adminHash string, log zerolog.Logger) (*Auth, error) {
	a := &Auth{
		adminUser: adminUser,
		adminHash: []byte(adminHash),
		log:       log.With().Str("component", "auth").Logger(),
		rateMap:   make(map[string]*rateEntry),
	}
	if secretHex != "" {
		b, err := hex.DecodeString(secretHex)
		if err != nil || len(b) < 16 {
			return nil, fmt.Errorf("auth.jwtSecret must be at least 16 hex-encoded bytes")
		}
		a.jwtSecret = b
		return a, nil
	}
	secret, err := loadOrCreateSecret(db, a.log)
	if err != nil {
		return nil, err
	}
	a.jwtSecret = secret
	return a, nil
}

// loadOrCreateSecret loads the JWT secret from the database, or generates
// and persists a new one if none exists.
func loadOrCreateSecret(db *DB, log zerolog.Logger) ([]byte, error) {
	if db != nil {
		if h := db.GetSetting(settingJWTSecret); h != "" {
			if b, err := hex.DecodeString(h); err == nil && len(b) == 32 {
				return b, nil
			}
		}
	}
	// Generate a new secret
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate JWT secret: %w", err)
	}
	if db != nil {
		if err := db.SetSetting(settingJWTSecret, hex.EncodeToString(secret)); err != nil {
			log.Warn().Err(err).Msg("could not persist JWT secret")
		}
	}
	return secret, nil
}

// IssueReconnectToken signs a token that lets the holder reclaim name while
// its session is in the grace period
func (a *Auth) IssueReconnectToken(name, connID string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"usr": name,
		"cid": connID,
		"exp": now.Add(reconnectTokenExpiry).Unix(),
		"iat": now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.jwtSecret)
}

// ValidateReconnectToken checks the signature and that the token was issued for name
func (a *Auth) ValidateReconnectToken(tokenStr, name string) error {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return a.jwtSecret, nil
	})
	if err != nil {
		return err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return fmt.Errorf("invalid token")
	}
	usr, ok := claims["usr"].(string)
	if !ok {
		return fmt.Errorf("invalid token claims")
	}
	if usr != name {
		return errTokenName
	}
	return nil
}

// CheckAdmin verifies admin credentials. It always fails when no password
// hash is configured or the caller exceeded its attempt budget.
func (a *Auth) CheckAdmin(user, password, ip string) bool {
	if len(a.adminHash) == 0 {
		return false
	}
	if !a.checkRate(ip) {
		a.log.Warn().Str("ip", ip).Msg("admin login rate limited")
		return false
	}
	if user != a.adminUser {
		return false
	}
	return bcrypt.CompareHashAndPassword(a.adminHash, []byte(password)) == nil
}

func (a *Auth) checkRate(ip string) bool {
	a.rateMu.Lock()
	defer a.rateMu.Unlock()

	now := time.Now()
	entry, ok := a.rateMap[ip]
	if !ok || now.After(entry.ResetAt) {
		a.rateMap[ip] = &rateEntry{Count: 1, ResetAt: now.Add(loginRateWindow)}
		return true
	}
	entry.Count++
	return entry.Count <= maxLoginAttempts
}

// HashAdminPassword returns the bcrypt hash to put in admin.passwordHash
func HashAdminPassword(password string) (string, error) {
	if len(password) < minPasswordLen {
		return "", fmt.Errorf("password must be at least %d characters", minPasswordLen)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
