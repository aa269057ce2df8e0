package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"zubari/internal/models/db_models"
	"zubari/internal/models/request_models"
	"zubari/internal/models/response_models"
	"zubari/internal/repositories"
	mem "zubari/pkg/memcache"
	"zubari/pkg/utils"
)

type AccountServiceInterface interface {
	// CreateAccount registers a free account and signs it in.
	CreateAccount(ctx context.Context, request request_models.SignUpRequest) (*response_models.AccountLoginResponse, error)
	Login(ctx context.Context, request request_models.LoginRequest) (*response_models.AccountLoginResponse, error)
	Logout(ctx context.Context, claims *utils.Claims) error
}

type AccountService struct {
	accountRepo repositories.AccountRepository
	tokens      *utils.TokenManager
	revoked     mem.RevokedTokenStore
	log         *zap.Logger
	timeout     time.Duration
	admins      map[string]struct{}
}

func NewAccountService(
	accountRepo repositories.AccountRepository,
	tokens *utils.TokenManager,
	revoked mem.RevokedTokenStore,
	log *zap.Logger,
	timeout time.Duration,
	adminEmails []string,
) AccountServiceInterface {
	if log == nil {
		log = zap.NewNop()
	}
	admins := make(map[string]struct{}, len(adminEmails))
	for _, email := range adminEmails {
		admins[normalizeEmail(email)] = struct{}{}
	}
	return &AccountService{
		accountRepo: accountRepo,
		tokens:      tokens,
		revoked:     revoked,
		log:         log,
		timeout:     timeout,
		admins:      admins,
	}
}

var (
	dummyHashOnce sync.Once
	dummyHash     string
)

// compareDummy burns one bcrypt comparison so unknown emails cost as much as
// wrong passwords.
func compareDummy(password string) {
	dummyHashOnce.Do(func() {
		dummyHash, _ = utils.HashPassword("zubari-dummy-password")
	})
	_ = utils.ComparePasswords(dummyHash, password)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (a *AccountService) CreateAccount(ctx context.Context, request request_models.SignUpRequest) (*response_models.AccountLoginResponse, error) {
	hashedPassword, err := utils.HashPassword(request.Password)
	if err != nil {
		return nil, err
	}

	email := normalizeEmail(request.Email)
	role := db_models.RoleUser
	if _, ok := a.admins[email]; ok {
		role = db_models.RoleAdmin
	}

	newAccount := &db_models.Account{
		Email:        email,
		PasswordHash: hashedPassword,
		Role:         role,
		Tier:         db_models.TierFree,
	}

	sctx, cancel := withStoreTimeout(ctx, a.timeout)
	defer cancel()

	if err := a.accountRepo.Insert(sctx, newAccount); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, utils.ErrEmailAlreadyExists
		}
		return nil, storeError("insert account", err)
	}

	a.log.Info("account created", zap.String("account_id", newAccount.ID.String()))
	return a.issue(newAccount)
}

func (a *AccountService) Login(ctx context.Context, request request_models.LoginRequest) (*response_models.AccountLoginResponse, error) {
	sctx, cancel := withStoreTimeout(ctx, a.timeout)
	defer cancel()

	account, err := a.accountRepo.FindByEmail(sctx, normalizeEmail(request.Email))
	if err != nil {
		return nil, storeError("find account", err)
	}

	if account == nil {
		compareDummy(request.Password)
		return nil, utils.ErrInvalidCredentials
	}

	if err := utils.ComparePasswords(account.PasswordHash, request.Password); err != nil {
		return nil, utils.ErrInvalidCredentials
	}

	return a.issue(account)
}

func (a *AccountService) issue(account *db_models.Account) (*response_models.AccountLoginResponse, error) {
	token, claims, err := a.tokens.CreateToken(account.ID, account.Role)
	if err != nil {
		return nil, err
	}

	return &response_models.AccountLoginResponse{
		Token:             token,
		ExpiresAt:         claims.ExpiresAt.Time,
		IsUserHavePremium: account.PremiumActive(time.Now()),
	}, nil
}

func (a *AccountService) Logout(ctx context.Context, claims *utils.Claims) error {
	if claims == nil || claims.ID == "" {
		return nil
	}

	var ttl time.Duration
	if claims.ExpiresAt != nil {
		ttl = time.Until(claims.ExpiresAt.Time)
	}
	if err := a.revoked.Revoke(ctx, claims.ID, ttl); err != nil {
		return storeError("revoke token", err)
	}
	return nil
}
