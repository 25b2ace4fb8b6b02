package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BaSui01/rewardflow/types"
)

// JSONFile 以 JSON 数组保存凭据：[{"email":..,"password":..,"salt":..}]
type JSONFile struct {
	Path string
}

// NewJSONFile 创建 JSON 文件来源
func NewJSONFile(path string) *JSONFile {
	return &JSONFile{Path: path}
}

// LoadCredentials 读取并校验文件中的全部凭据
func (f *JSONFile) LoadCredentials(ctx context.Context) ([]types.Credential, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	creds, err := f.read()
	if err != nil {
		return nil, err
	}
	if err := Validate(creds); err != nil {
		return nil, fmt.Errorf("%s: %w", f.Path, err)
	}
	return creds, nil
}

func (f *JSONFile) read() ([]types.Credential, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("read credentials file: %w", err)
	}
	var creds []types.Credential
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("parse credentials file %s: %w", f.Path, err)
	}
	return creds, nil
}

// SaveAll 把 creds 追加到文件中已有的凭据之后并整体重写，返回写入后的全部凭据。
// 文件不存在时创建，权限 0600。
func (f *JSONFile) SaveAll(ctx context.Context, creds []types.Credential) ([]types.Credential, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := Validate(creds); err != nil {
		return nil, err
	}

	existing, err := f.read()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	all := append(existing, creds...)

	data, err := json.MarshalIndent(all, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("encode credentials: %w", err)
	}

	if dir := filepath.Dir(f.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create credentials dir: %w", err)
		}
	}
	tmp := f.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return nil, fmt.Errorf("write credentials file: %w", err)
	}
	if err := os.Rename(tmp, f.Path); err != nil {
		_ = os.Remove(tmp)
		return nil, fmt.Errorf("replace credentials file: %w", err)
	}
	return all, nil
}
