// =============================================================================
// 🧪 测试辅助函数
// =============================================================================
// 提供通用的测试辅助函数和断言
//
// 使用方法:
//
//	ctx := testutil.TestContext(t)
//	path := testutil.WriteCredentialsFile(t, creds)
//	testutil.AssertEventuallyTrue(t, func() bool { return condition }, 5*time.Second)
// =============================================================================
package testutil

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/BaSui01/rewardflow/types"
)

// =============================================================================
// 🎯 上下文辅助
// =============================================================================

// TestContext 返回带超时的测试上下文
func TestContext(t testing.TB) context.Context {
	return TestContextWithTimeout(t, 30*time.Second)
}

// TestContextWithTimeout 返回带自定义超时的测试上下文
func TestContextWithTimeout(t testing.TB, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}

// CancelledContext 返回已取消的上下文
func CancelledContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}

// =============================================================================
// 🔍 断言辅助
// =============================================================================

// AssertEventuallyTrue 断言条件最终为真
func AssertEventuallyTrue(t testing.TB, condition func() bool, timeout time.Duration) {
	t.Helper()

	if !WaitFor(condition, timeout) {
		t.Errorf("condition did not become true within %v", timeout)
	}
}

// AssertMasked 断言日志或输出里没有出现完整邮箱与密码
func AssertMasked(t testing.TB, output string, creds ...types.Credential) {
	t.Helper()
	for _, c := range creds {
		if c.Identifier != c.Masked() && strings.Contains(output, c.Identifier) {
			t.Errorf("output leaks identifier %q", c.Identifier)
		}
		if c.Secret != "" && strings.Contains(output, c.Secret) {
			t.Errorf("output leaks secret of %q", c.Masked())
		}
	}
}

// =============================================================================
// ⏱️ 时间辅助
// =============================================================================

// WaitFor 等待条件满足或超时
func WaitFor(condition func() bool, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return condition()
}

// =============================================================================
// 🔧 测试数据辅助
// =============================================================================

// Credentials 生成 n 个互不相同的测试账号
func Credentials(n int) []types.Credential {
	out := make([]types.Credential, n)
	for i := range out {
		out[i] = types.Credential{
			Identifier: "user" + string(rune('a'+i%26)) + strconv.Itoa(i/26) + "@example.com",
			Secret:     "secret-" + strconv.Itoa(i),
		}
	}
	return out
}

// WriteCredentialsFile 把 creds 写入临时目录下的 accounts.json，返回路径
func WriteCredentialsFile(t testing.TB, creds []types.Credential) string {
	t.Helper()

	data, err := json.MarshalIndent(creds, "", "    ")
	if err != nil {
		t.Fatalf("failed to marshal credentials: %v", err)
	}
	path := filepath.Join(t.TempDir(), "accounts.json")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("failed to write credentials file: %v", err)
	}
	return path
}
