package resilience

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func fastPolicy(attempts int) Policy {
	return Policy{
		Attempts:       attempts,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
		Multiplier:     2,
	}
}

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	var retried []int
	p := fastPolicy(3)
	p.OnRetry = func(attempt int, _ error) { retried = append(retried, attempt) }

	err := Do(context.Background(), p, func(context.Context) error {
		calls++
		if calls < 3 {
			return MarkTransient(eris.New("store: database is starting"))
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, retried)
}

func TestDo_StopsOnPermanentError(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(5), func(context.Context) error {
		calls++
		return eris.New("store: syntax error")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(3), func(context.Context) error {
		calls++
		return MarkTransient(fmt.Errorf("attempt %d", calls))
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Contains(t, err.Error(), "attempt 3")
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	p := Policy{Attempts: 5, InitialBackoff: time.Hour, MaxBackoff: time.Hour}

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := Do(ctx, p, func(context.Context) error {
		calls++
		return MarkTransient(eris.New("locked"))
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoVal_ReturnsValue(t *testing.T) {
	calls := 0
	v, err := DoVal(context.Background(), fastPolicy(3), func(context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", eris.New("sqlite: database is locked")
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}

func TestBackoff(t *testing.T) {
	p := Policy{InitialBackoff: 100 * time.Millisecond, MaxBackoff: 300 * time.Millisecond, Multiplier: 2}
	assert.Equal(t, 100*time.Millisecond, backoff(0, p))
	assert.Equal(t, 200*time.Millisecond, backoff(1, p))
	assert.Equal(t, 300*time.Millisecond, backoff(5, p))

	p.Jitter = 0.5
	for range 20 {
		d := backoff(0, p)
		assert.GreaterOrEqual(t, d, 50*time.Millisecond)
		assert.LessOrEqual(t, d, 150*time.Millisecond)
	}
}

func TestWithDefaults(t *testing.T) {
	p := withDefaults(Policy{Jitter: -1})
	assert.Equal(t, DefaultPolicy().Attempts, p.Attempts)
	assert.Equal(t, DefaultPolicy().InitialBackoff, p.InitialBackoff)
	assert.Zero(t, p.Jitter)
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"marked", MarkTransient(eris.New("x")), true},
		{"wrapped marked", eris.Wrap(MarkTransient(eris.New("x")), "store: open"), true},
		{"pg connection failure", &pgconn.PgError{Code: "08006"}, true},
		{"pg starting up", eris.Wrap(&pgconn.PgError{Code: "57P03"}, "store: ping"), true},
		{"pg syntax error", &pgconn.PgError{Code: "42601"}, false},
		{"sqlite busy", eris.New("database is locked (5) (SQLITE_BUSY)"), true},
		{"reset", eris.New("read tcp: connection reset by peer"), true},
		{"permanent", eris.New("store: unsupported driver"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
	assert.Nil(t, MarkTransient(nil))
}
