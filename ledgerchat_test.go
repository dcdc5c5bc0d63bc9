package ledgerchat_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/ledgerchat"
	"github.com/aretw0/ledgerchat/pkg/adapters/memory"
	"github.com/aretw0/ledgerchat/pkg/domain"
	"github.com/aretw0/ledgerchat/pkg/flow"
	"github.com/aretw0/ledgerchat/pkg/observability"
	"github.com/aretw0/ledgerchat/pkg/persistence/middleware"
	"github.com/aretw0/ledgerchat/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type upstreamFunc func(context.Context, ports.Submission) (any, error)

func (f upstreamFunc) Submit(ctx context.Context, sub ports.Submission) (any, error) {
	return f(ctx, sub)
}

func okUpstream() ports.Upstream {
	return upstreamFunc(func(_ context.Context, sub ports.Submission) (any, error) {
		return map[string]any{"data": map[string]any{
			"action": map[string]any{"type": "OFFER_CREATED", "actor": sub.ChannelID, "message": "Offer sent"},
		}}, nil
	})
}

func TestEngine_EncryptedCache(t *testing.T) {
	raw := memory.NewStore()
	enc, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: bytes.Repeat([]byte{7}, 32)})
	require.NoError(t, err)

	eng := ledgerchat.New(
		ledgerchat.WithCache(middleware.Chain(raw, enc)),
		ledgerchat.WithKeyPrefix("t:"),
	)
	ctx := context.Background()
	_, err = eng.StartFlow(ctx, "c1", flow.TypeOffer)
	require.NoError(t, err)

	stored, err := raw.Get(ctx, "t:c1")
	require.NoError(t, err)
	assert.NotContains(t, string(stored), "offer")

	sess, err := eng.Load(ctx, "c1")
	require.NoError(t, err)
	require.True(t, sess.InFlow())
	assert.Equal(t, "amount", sess.FlowData.Step)
}

func TestEngine_MetricsAndReporter(t *testing.T) {
	metrics := observability.NewMetrics()
	var reported []domain.ErrorContext
	eng := ledgerchat.New(
		ledgerchat.WithMetrics(metrics),
		ledgerchat.WithReporter(ports.ReporterFunc(func(_ context.Context, ec domain.ErrorContext) {
			reported = append(reported, ec)
		})),
	)
	ctx := context.Background()

	res, err := eng.Handle(ctx, "c1", "offer")
	require.NoError(t, err)
	assert.Equal(t, ledgerchat.StatusPrompt, res.Status)

	res, err = eng.Handle(ctx, "c1", "lots")
	require.NoError(t, err)
	assert.Equal(t, ledgerchat.StatusRetry, res.Status)
	require.Len(t, reported, 1)
	assert.Equal(t, domain.ErrorTypeInput, reported[0].Type)

	families, err := metrics.Registry().Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["ledgerchat_flow_steps_total"])
	assert.True(t, names["ledgerchat_state_operations_total"])
}

func TestEngine_Merge(t *testing.T) {
	eng := ledgerchat.New()
	ctx := context.Background()

	ok, msg := eng.Merge(ctx, "c1", map[string]any{"data": map[string]any{
		"dashboard": map[string]any{"member": map[string]any{"memberID": "m-7"}},
		"action":    map[string]any{"type": "LOGIN"},
	}})
	require.True(t, ok, msg)

	sess, err := eng.Load(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "m-7", sess.MemberID())

	ok, msg = eng.Merge(ctx, "c1", map[string]any{"data": map[string]any{}})
	assert.False(t, ok)
	assert.Equal(t, "missing dashboard data", msg)
}

type lockerFunc func(context.Context, string, time.Duration) (ports.UnlockFunc, error)

func (f lockerFunc) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	return f(ctx, key, ttl)
}

func TestEngine_MergeReportsLockFailure(t *testing.T) {
	var reported []domain.ErrorContext
	eng := ledgerchat.New(
		ledgerchat.WithLocker(lockerFunc(func(context.Context, string, time.Duration) (ports.UnlockFunc, error) {
			return nil, errors.New("lock backend unreachable")
		})),
		ledgerchat.WithReporter(ports.ReporterFunc(func(_ context.Context, ec domain.ErrorContext) {
			reported = append(reported, ec)
		})),
	)
	ctx := context.Background()

	ok, msg := eng.Merge(ctx, "c1", map[string]any{"data": map[string]any{
		"dashboard": map[string]any{"member": map[string]any{"memberID": "m-7"}},
		"action":    map[string]any{"type": "LOGIN"},
	}})
	assert.False(t, ok)
	assert.Equal(t, domain.MessageSystemFailure, msg)

	require.Len(t, reported, 1)
	assert.Equal(t, domain.ErrorTypeSystem, reported[0].Type)
	assert.Contains(t, reported[0].Message, "lock backend unreachable")
	assert.Equal(t, "c1", reported[0].Details["channel_id"])

	_, err := eng.Store().Get(ctx, "c1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestEngine_RefusesInvalidSession(t *testing.T) {
	eng := ledgerchat.New()
	ctx := context.Background()

	_, err := eng.Sessions().Save(ctx, &domain.Session{
		ChannelID: "c1",
		Profile:   map[string]any{"data": "not-a-map"},
		FlowData:  &domain.FlowData{ID: "offer", Step: "bogus"},
	}, 0)
	var flowErr *domain.FlowError
	require.ErrorAs(t, err, &flowErr)
	assert.Equal(t, "bogus", flowErr.StepID)
	assert.ErrorIs(t, err, flow.ErrNotInFlow)

	_, err = eng.Sessions().Save(ctx, &domain.Session{
		ChannelID: "c1",
		Profile:   map[string]any{"data": "not-a-map"},
	}, 0)
	require.ErrorAs(t, err, &flowErr)
	assert.Equal(t, domain.StepUnknown, flowErr.StepID)

	_, err = eng.Store().Get(ctx, "c1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	// A valid session is stored with its profile skeleton filled in.
	_, err = eng.Sessions().Save(ctx, &domain.Session{
		ChannelID: "c1",
		Profile:   map[string]any{"name": "alice"},
		FlowData:  &domain.FlowData{ID: "offer", Step: "amount"},
	}, 0)
	require.NoError(t, err)
	stored, err := eng.Store().Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "alice", stored.Profile["name"])
	assert.Contains(t, stored.Profile, "data")
}

func TestRunner_ScriptedConversation(t *testing.T) {
	eng := ledgerchat.New(ledgerchat.WithUpstream(okUpstream()))
	in := strings.NewReader("offer\n12.345\n12 CAD\n@bob\nyes\n")
	var out bytes.Buffer

	r := ledgerchat.NewRunner("console")
	r.Input, r.Output, r.Headless = in, &out, true
	require.NoError(t, r.Run(context.Background(), eng))

	text := out.String()
	assert.Contains(t, text, "How much?")
	assert.Contains(t, text, "⚠")
	assert.Contains(t, text, "Who is it for?")
	assert.Contains(t, text, "Confirm? (yes/no)")
	assert.Contains(t, text, "✔ Offer sent")

	sess, err := eng.Load(context.Background(), "console")
	require.NoError(t, err)
	assert.Nil(t, sess.FlowData)
}

func TestRunner_Cancel(t *testing.T) {
	eng := ledgerchat.New()
	in := strings.NewReader("offer\n/cancel\n")
	var out bytes.Buffer

	r := ledgerchat.NewRunner("console")
	r.Input, r.Output, r.Headless = in, &out, true
	require.NoError(t, r.Run(context.Background(), eng))

	sess, err := eng.Load(context.Background(), "console")
	require.NoError(t, err)
	assert.False(t, sess.InFlow())
}

func TestRunner_JSONLines(t *testing.T) {
	eng := ledgerchat.New()
	in := strings.NewReader("offer\nlots\n")
	var out bytes.Buffer

	r := ledgerchat.NewRunner("bot")
	r.Input, r.Output, r.JSON = in, &out, true
	require.NoError(t, r.Run(context.Background(), eng))

	dec := json.NewDecoder(&out)
	var first, second ledgerchat.StepResult
	require.NoError(t, dec.Decode(&first))
	require.NoError(t, dec.Decode(&second))
	assert.Equal(t, ledgerchat.StatusPrompt, first.Status)
	assert.Equal(t, "amount", first.Step)
	assert.Equal(t, ledgerchat.StatusRetry, second.Status)
	assert.False(t, dec.More())
}

func TestRunner_RequiresIO(t *testing.T) {
	err := ledgerchat.NewRunner("c1").Run(context.Background(), ledgerchat.New())
	assert.Error(t, err)
}
