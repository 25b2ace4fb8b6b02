package credentials

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/BaSui01/rewardflow/types"
)

// ErrInvalidCredentials 凭据为空或邮箱与密码数量不一致
var ErrInvalidCredentials = errors.New("credentials must contain an email and a password")

// Source 凭据来源
type Source interface {
	LoadCredentials(ctx context.Context) ([]types.Credential, error)
}

// SourceFunc 函数适配器
type SourceFunc func(ctx context.Context) ([]types.Credential, error)

func (f SourceFunc) LoadCredentials(ctx context.Context) ([]types.Credential, error) {
	return f(ctx)
}

// Validate 检查每条凭据都有邮箱和密码
func Validate(creds []types.Credential) error {
	if len(creds) == 0 {
		return fmt.Errorf("%w: no credentials", ErrInvalidCredentials)
	}
	for i, c := range creds {
		if !c.Valid() {
			return fmt.Errorf("%w: entry %d (%q)", ErrInvalidCredentials, i, c.Identifier)
		}
	}
	return nil
}

// ParseDelimited 把 "a@x,b@y" 与 "p1,p2" 拆成凭据列表，每个值去掉首尾空白
func ParseDelimited(emails, passwords, delimiter string) ([]types.Credential, error) {
	if delimiter == "" {
		delimiter = ","
	}
	if strings.TrimSpace(emails) == "" || strings.TrimSpace(passwords) == "" {
		return nil, fmt.Errorf("%w: empty input", ErrInvalidCredentials)
	}

	ids := strings.Split(emails, delimiter)
	secrets := strings.Split(passwords, delimiter)
	if len(ids) != len(secrets) {
		return nil, fmt.Errorf("%w: %d emails but %d passwords", ErrInvalidCredentials, len(ids), len(secrets))
	}

	out := make([]types.Credential, len(ids))
	for i := range ids {
		out[i] = types.Credential{
			Identifier: strings.TrimSpace(ids[i]),
			Secret:     strings.TrimSpace(secrets[i]),
		}
	}
	if err := Validate(out); err != nil {
		return nil, err
	}
	return out, nil
}

// Merge 合并多个来源，按邮箱去重，先出现的优先
func Merge(sources ...Source) Source {
	return SourceFunc(func(ctx context.Context) ([]types.Credential, error) {
		seen := make(map[string]struct{})
		var out []types.Credential
		for _, src := range sources {
			creds, err := src.LoadCredentials(ctx)
			if err != nil {
				return nil, err
			}
			for _, c := range creds {
				key := strings.ToLower(c.Identifier)
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
				out = append(out, c)
			}
		}
		return out, nil
	})
}

// IgnoreMissing 文件不存在时返回空列表而不是错误
func IgnoreMissing(src Source) Source {
	return SourceFunc(func(ctx context.Context) ([]types.Credential, error) {
		creds, err := src.LoadCredentials(ctx)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return creds, err
	})
}
