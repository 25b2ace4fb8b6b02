package credentials

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/BaSui01/rewardflow/internal/database"
	"github.com/BaSui01/rewardflow/internal/migration"
	"github.com/BaSui01/rewardflow/types"
)

// saveRetries 写入遇到锁冲突时的最大尝试次数
const saveRetries = 3

// CredentialRecord credentials 表的一行，表结构由 internal/migration 维护。
// Profile 为空表示对所有档案可见。
type CredentialRecord struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	Email     string `gorm:"size:320;not null;index"`
	Password  string `gorm:"not null"`
	Salt      string
	Profile   string `gorm:"size:32;index"`
	CreatedAt time.Time
}

// TableName 固定表名
func (CredentialRecord) TableName() string { return "credentials" }

func (r CredentialRecord) credential() types.Credential {
	return types.Credential{Identifier: r.Email, Secret: r.Password, Salt: r.Salt}
}

// Store 基于 GORM 的凭据存储
type Store struct {
	pool   *database.PoolManager
	logger *zap.Logger
}

// NewStore 创建存储，并把 credentials 表迁移到最新版本
func NewStore(ctx context.Context, pool *database.PoolManager, logger *zap.Logger) (*Store, error) {
	if pool == nil {
		return nil, errors.New("credentials: database pool is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := migrate(ctx, pool); err != nil {
		return nil, err
	}
	return &Store{
		pool:   pool,
		logger: logger.With(zap.String("component", "credential_store")),
	}, nil
}

func migrate(ctx context.Context, pool *database.PoolManager) (err error) {
	m, err := migration.NewMigratorFromPool(pool)
	if err != nil {
		return fmt.Errorf("migrate credentials table: %w", err)
	}
	defer func() {
		if cerr := m.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()
	if err := m.Up(ctx); err != nil {
		return fmt.Errorf("migrate credentials table: %w", err)
	}
	return nil
}

// Save 在一个事务中写入凭据，profile 为空时对所有档案可见
func (s *Store) Save(ctx context.Context, profile types.Profile, creds []types.Credential) error {
	if err := Validate(creds); err != nil {
		return err
	}
	records := make([]CredentialRecord, len(creds))
	for i, c := range creds {
		records[i] = CredentialRecord{
			Email:    c.Identifier,
			Password: c.Secret,
			Salt:     c.Salt,
			Profile:  string(profile),
		}
	}

	err := s.pool.WithTransactionRetry(ctx, saveRetries, func(tx *gorm.DB) error {
		return tx.Create(&records).Error
	})
	if err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}
	s.logger.Info("credentials saved", zap.Int("count", len(records)), zap.String("profile", string(profile)))
	return nil
}

// Load 返回 profile 可用的凭据（含未绑定档案的记录），按插入顺序
func (s *Store) Load(ctx context.Context, profile types.Profile) ([]types.Credential, error) {
	var records []CredentialRecord
	q := s.pool.DB().WithContext(ctx).Order("id")
	if profile != "" {
		q = q.Where("profile = ? OR profile = ''", string(profile))
	}
	if err := q.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}

	out := make([]types.Credential, len(records))
	for i, r := range records {
		out[i] = r.credential()
	}
	return out, nil
}

// LoadCredentials 返回全部凭据
func (s *Store) LoadCredentials(ctx context.Context) ([]types.Credential, error) {
	return s.Load(ctx, "")
}

// ForProfile 返回只加载 profile 可用凭据的来源
func (s *Store) ForProfile(profile types.Profile) Source {
	return SourceFunc(func(ctx context.Context) ([]types.Credential, error) {
		return s.Load(ctx, profile)
	})
}

// Count 记录数
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.pool.DB().WithContext(ctx).Model(&CredentialRecord{}).Count(&n).Error
	return n, err
}
