package httpapi

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"barbook/backend/internal/domain"
)

// UserStore is the account seam the auth manager reads credentials through.
// The ledger store satisfies it, persisting accounts next to the week state.
type UserStore interface {
	ListUsers() []domain.UserAccount
	FindUser(username string) (domain.UserAccount, error)
	UpsertUser(account domain.UserAccount) domain.UserAccount
	SeedUsers(accounts []domain.UserAccount) bool
}

type AuthManager struct {
	secret   []byte
	tokenTTL time.Duration
	users    UserStore
}

type barCustomClaims struct {
	jwtlib.RegisteredClaims
	Role string `json:"role"`
}

func NewAuthManager(secret string, tokenTTL time.Duration, users UserStore) *AuthManager {
	if secret == "" {
		secret = "dev-change-me"
	}
	if tokenTTL <= 0 {
		tokenTTL = 8 * time.Hour
	}
	return &AuthManager{
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		users:    users,
	}
}

// SeedDefaults installs the admin and staff accounts on an empty user store.
// Passwords arrive from configuration and are stored hashed.
func (a *AuthManager) SeedDefaults(adminPassword string, staffPassword string) {
	now := time.Now().UTC()
	accounts := make([]domain.UserAccount, 0, 2)

	if hash, err := hashPassword(adminPassword); err == nil {
		accounts = append(accounts, domain.UserAccount{
			Username: "admin", Password: hash, Role: domain.RoleAdmin, Active: true, CreatedAt: now,
		})
	}
	if hash, err := hashPassword(staffPassword); err == nil {
		accounts = append(accounts, domain.UserAccount{
			Username: "staff", Password: hash, Role: domain.RoleStaff, Active: true, CreatedAt: now,
		})
	}
	if len(accounts) > 0 {
		a.users.SeedUsers(accounts)
	}
}

func (a *AuthManager) Login(req domain.LoginRequest) (domain.LoginResponse, error) {
	username := strings.ToLower(strings.TrimSpace(req.Username))
	account, err := a.users.FindUser(username)
	if err != nil {
		return domain.LoginResponse{}, errors.New("invalid credentials")
	}

	// Accounts written before hashing was introduced carry plain passwords;
	// upgrade them on first successful login.
	if !isPasswordHash(account.Password) {
		if account.Password == "" || account.Password != req.Password {
			return domain.LoginResponse{}, errors.New("invalid credentials")
		}
		if hash, hashErr := hashPassword(req.Password); hashErr == nil {
			account.Password = hash
			a.users.UpsertUser(account)
		}
	} else if !verifyPassword(account.Password, req.Password) {
		return domain.LoginResponse{}, errors.New("invalid credentials")
	}

	if !account.Active {
		return domain.LoginResponse{}, errors.New("account is inactive")
	}

	expiresAt := time.Now().UTC().Add(a.tokenTTL)
	token, err := a.sign(account.Username, account.Role, expiresAt)
	if err != nil {
		return domain.LoginResponse{}, err
	}

	return domain.LoginResponse{
		AccessToken: token,
		Role:        account.Role,
		ExpiresAt:   expiresAt.Format(time.RFC3339),
	}, nil
}

func (a *AuthManager) ParseToken(tokenStr string) (domain.Actor, error) {
	claims := &barCustomClaims{}
	token, err := jwtlib.ParseWithClaims(tokenStr, claims, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	}, jwtlib.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return domain.Actor{}, errors.New("invalid or expired token")
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return domain.Actor{}, errors.New("invalid token subject")
	}
	return domain.Actor{Username: sub, Role: claims.Role}, nil
}

func (a *AuthManager) sign(username, role string, expiresAt time.Time) (string, error) {
	claims := barCustomClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwtlib.NewNumericDate(time.Now().UTC()),
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
			Issuer:    "barbook",
		},
		Role: role,
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

func (a *AuthManager) CreateStaff(req domain.StaffCreateRequest) (domain.StaffUser, error) {
	username := strings.ToLower(strings.TrimSpace(req.Username))
	if username == "" || len(username) < 4 {
		return domain.StaffUser{}, fmt.Errorf("username must be at least 4 characters")
	}
	if strings.ContainsAny(username, " \t\r\n") {
		return domain.StaffUser{}, fmt.Errorf("username must not contain spaces")
	}
	if strings.TrimSpace(req.Password) == "" || len(req.Password) < 6 {
		return domain.StaffUser{}, fmt.Errorf("password must be at least 6 characters")
	}

	if _, err := a.users.FindUser(username); err == nil {
		return domain.StaffUser{}, fmt.Errorf("username already exists")
	}

	passwordHash, err := hashPassword(req.Password)
	if err != nil {
		return domain.StaffUser{}, fmt.Errorf("failed to hash password")
	}

	now := time.Now().UTC()
	account := a.users.UpsertUser(domain.UserAccount{
		Username:  username,
		Password:  passwordHash,
		Role:      domain.RoleStaff,
		Active:    true,
		CreatedAt: now,
	})

	return domain.StaffUser{
		Username:  account.Username,
		Role:      account.Role,
		Active:    account.Active,
		CreatedAt: account.CreatedAt,
	}, nil
}

func (a *AuthManager) ListStaff() []domain.StaffUser {
	accounts := a.users.ListUsers()
	result := make([]domain.StaffUser, 0, len(accounts))
	for _, account := range accounts {
		if account.Role != domain.RoleStaff {
			continue
		}
		result = append(result, domain.StaffUser{
			Username:  account.Username,
			Role:      account.Role,
			Active:    account.Active,
			CreatedAt: account.CreatedAt,
		})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Username < result[j].Username
	})
	return result
}

func verifyPassword(stored string, input string) bool {
	if stored == "" || strings.TrimSpace(input) == "" || !isPasswordHash(stored) {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(input)) == nil
}

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

func isPasswordHash(value string) bool {
	return strings.HasPrefix(value, "$2a$") || strings.HasPrefix(value, "$2b$") || strings.HasPrefix(value, "$2y$")
}
