package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"sync"
	"time"

	"golang.org/x/crypto/pbkdf2"
)

var (
	// ErrInvalidCredentials is returned when username or password is incorrect
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrUserExists is returned when trying to create a user that already exists
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound is returned when user is not found
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidToken is returned when a session token is unknown or expired
	ErrInvalidToken = errors.New("invalid or expired token")
)

const (
	saltLength     = 16
	iterationCount = 4096
	keyLength      = 32

	defaultSessionTTL = 24 * time.Hour
)

// Role represents a user role
type Role string

const (
	// RoleAdmin has full access to all operations
	RoleAdmin Role = "admin"
	// RoleReadWrite can read and write data
	RoleReadWrite Role = "readWrite"
	// RoleRead can only read data
	RoleRead Role = "read"
)

// CanWrite reports whether the role may mutate data
func (r Role) CanWrite() bool {
	return r == RoleAdmin || r == RoleReadWrite
}

// User represents a database user with a PBKDF2-derived password key
type User struct {
	Username  string
	Salt      []byte
	StoredKey []byte
	Role      Role
	CreatedAt time.Time
}

// Session represents an authenticated session
type Session struct {
	Username  string
	Role      Role
	Token     string
	ExpiresAt time.Time
}

// Manager manages users and session tokens
type Manager struct {
	mu         sync.RWMutex
	users      map[string]*User
	sessions   map[string]*Session
	sessionTTL time.Duration
}

// NewManager creates an authentication manager
func NewManager() *Manager {
	return &Manager{
		users:      make(map[string]*User),
		sessions:   make(map[string]*Session),
		sessionTTL: defaultSessionTTL,
	}
}

func deriveKey(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, iterationCount, keyLength, sha256.New)
}

// CreateUser registers a user with a salted derived key; the plain password
// is never stored
func (m *Manager) CreateUser(username, password string, role Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.users[username]; exists {
		return ErrUserExists
	}

	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return err
	}

	m.users[username] = &User{
		Username:  username,
		Salt:      salt,
		StoredKey: deriveKey(password, salt),
		Role:      role,
		CreatedAt: time.Now(),
	}
	return nil
}

// DeleteUser removes a user
func (m *Manager) DeleteUser(username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.users[username]; !exists {
		return ErrUserNotFound
	}
	delete(m.users, username)
	return nil
}

// HasUsers reports whether any user is registered
func (m *Manager) HasUsers() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.users) > 0
}

// Authenticate verifies the credentials and opens a session
func (m *Manager) Authenticate(username, password string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, exists := m.users[username]
	if !exists {
		return nil, ErrInvalidCredentials
	}
	if !hmac.Equal(user.StoredKey, deriveKey(password, user.Salt)) {
		return nil, ErrInvalidCredentials
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return nil, err
	}

	session := &Session{
		Username:  username,
		Role:      user.Role,
		Token:     base64.URLEncoding.EncodeToString(tokenBytes),
		ExpiresAt: time.Now().Add(m.sessionTTL),
	}
	m.sessions[session.Token] = session
	return session, nil
}

// ValidateToken resolves a session token, dropping it when expired
func (m *Manager) ValidateToken(token string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, exists := m.sessions[token]
	if !exists {
		return nil, ErrInvalidToken
	}
	if time.Now().After(session.ExpiresAt) {
		delete(m.sessions, token)
		return nil, ErrInvalidToken
	}
	return session, nil
}

// CheckPassword verifies credentials without opening a session
func (m *Manager) CheckPassword(username, password string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, exists := m.users[username]
	if !exists {
		return false
	}
	return hmac.Equal(user.StoredKey, deriveKey(password, user.Salt))
}
