package core

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/csvtable/internal/config"
	"github.com/JonMunkholm/csvtable/internal/csvparse"
	"github.com/JonMunkholm/csvtable/internal/render"
)

func testConvertConfig() config.ConvertConfig {
	return config.ConvertConfig{
		MaxInputSize:  1024,
		MaxConcurrent: 2,
		MaxWaitTime:   50 * time.Millisecond,
		Timeout:       time.Second,
		HistoryLimit:  5,
	}
}

func TestService_ConvertHTML(t *testing.T) {
	svc := NewService(testConvertConfig(), nil, nil)

	res, err := svc.Convert(context.Background(), ConvertRequest{
		Input:   "Name,Qty\nApple,3\n",
		Format:  "html",
		Options: render.Options{HasHeader: true, ClassName: "fruit"},
	})
	require.NoError(t, err)

	assert.Equal(t, render.FormatHTML, res.Format)
	assert.Equal(t, 2, res.Rows)
	assert.Equal(t, 2, res.Columns)
	assert.Equal(t, csvparse.Table{{"Name", "Qty"}, {"Apple", "3"}}, res.Table)
	assert.Contains(t, res.Markup, `<table class="fruit">`)
	assert.Contains(t, res.Markup, "<th>Name</th>")
	assert.Empty(t, res.SnippetID)
}

func TestService_ConvertBlock(t *testing.T) {
	svc := NewService(testConvertConfig(), nil, nil)

	res, err := svc.Convert(context.Background(), ConvertRequest{
		Input:   "a,b",
		Format:  "block",
		Options: render.Options{HasStripes: true},
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(res.Markup, "<!-- wp:table"))
	assert.Contains(t, res.Markup, "is-style-stripes")
}

func TestService_ConvertDefaultClass(t *testing.T) {
	cfg := testConvertConfig()
	cfg.DefaultClassName = "wide"
	svc := NewService(cfg, nil, nil)

	res, err := svc.Convert(context.Background(), ConvertRequest{Input: "x"})
	require.NoError(t, err)
	assert.Contains(t, res.Markup, `class="wide"`)
}

func TestService_ConvertErrors(t *testing.T) {
	svc := NewService(testConvertConfig(), nil, nil)
	ctx := context.Background()

	tests := []struct {
		name string
		req  ConvertRequest
		want error
	}{
		{"blank input", ConvertRequest{Input: " \n , \n"}, render.ErrNoData},
		{"empty input", ConvertRequest{Input: ""}, render.ErrNoData},
		{"unknown format", ConvertRequest{Input: "a", Format: "pdf"}, render.ErrUnknownFormat},
		{"too large", ConvertRequest{Input: strings.Repeat("a", 2048)}, csvparse.ErrInputTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := svc.Convert(ctx, tt.req)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestService_ConvertSavesSnippet(t *testing.T) {
	store := NewMemoryStore(5)
	svc := NewService(testConvertConfig(), store, nil)

	ctx := ContextWithClientIP(context.Background(), "192.0.2.7")
	ctx = ContextWithUserAgent(ctx, "test-agent")

	res, err := svc.Convert(ctx, ConvertRequest{Input: "a,b\nc,d", Format: "block", Save: true})
	require.NoError(t, err)
	require.NotEmpty(t, res.SnippetID)

	snip, err := svc.GetSnippet(context.Background(), res.SnippetID)
	require.NoError(t, err)
	assert.Equal(t, res.Markup, snip.Markup)
	assert.Equal(t, "a,b\nc,d", snip.Input)
	assert.Equal(t, render.FormatBlock, snip.Format)
	assert.Equal(t, 2, snip.Rows)
	assert.Equal(t, "192.0.2.7", snip.ClientIP)
	assert.Equal(t, "test-agent", snip.UserAgent)
}

func TestService_NoSnippetForNoData(t *testing.T) {
	store := NewMemoryStore(5)
	svc := NewService(testConvertConfig(), store, nil)

	_, err := svc.Convert(context.Background(), ConvertRequest{Input: "\n\n", Save: true})
	assert.ErrorIs(t, err, render.ErrNoData)
	assert.Zero(t, store.Len())
}

type failingStore struct{ *MemoryStore }

func (failingStore) Save(context.Context, *Snippet) error { return errors.New("disk full") }

func TestService_SaveFailure(t *testing.T) {
	svc := NewService(testConvertConfig(), failingStore{NewMemoryStore(1)}, nil)

	_, err := svc.Convert(context.Background(), ConvertRequest{Input: "a", Save: true})
	assert.ErrorContains(t, err, "disk full")
	assert.ErrorContains(t, err, "write sink")
}

func TestService_ConvertBusy(t *testing.T) {
	cfg := testConvertConfig()
	cfg.MaxConcurrent = 1
	svc := NewService(cfg, nil, nil)

	require.NoError(t, svc.limiter.Acquire(context.Background()))
	defer svc.limiter.Release()

	_, err := svc.Convert(context.Background(), ConvertRequest{Input: "a"})
	assert.ErrorIs(t, err, ErrTooManyConversions)
	assert.Equal(t, "CNV003", MapError(err).Code)
}

func TestService_ConvertCancelled(t *testing.T) {
	svc := NewService(testConvertConfig(), nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Convert(ctx, ConvertRequest{Input: "a"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestService_Metrics(t *testing.T) {
	m := NewMetrics(nil)
	svc := NewService(testConvertConfig(), nil, m)

	_, err := svc.Convert(context.Background(), ConvertRequest{Input: "a\nb\nc"})
	require.NoError(t, err)
	_, err = svc.Convert(context.Background(), ConvertRequest{Input: "", Format: "block"})
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.conversionsTotal.WithLabelValues("html", StatusOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.conversionsTotal.WithLabelValues("block", StatusNoData)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.rowsParsed))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.activeConversions))
}

func TestService_Parse(t *testing.T) {
	svc := NewService(testConvertConfig(), nil, nil)

	table, err := svc.Parse(context.Background(), `"a, b",c`+"\r\n"+`d,"e ""q"""`)
	require.NoError(t, err)
	assert.Equal(t, csvparse.Table{{"a, b", "c"}, {"d", `e "q"`}}, table)

	_, err = svc.Parse(context.Background(), strings.Repeat("x", 4096))
	assert.ErrorIs(t, err, csvparse.ErrInputTooLarge)
}

func TestService_StripsPastedBOM(t *testing.T) {
	svc := NewService(testConvertConfig(), nil, nil)

	res, err := svc.Convert(context.Background(), ConvertRequest{
		Input:   "\uFEFFName,Qty\nApple,3",
		Options: render.Options{HasHeader: true},
		Save:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, "Name", res.Table[0][0])
	assert.Contains(t, res.Markup, "<th>Name</th>")

	saved, err := svc.GetSnippet(context.Background(), res.SnippetID)
	require.NoError(t, err)
	assert.False(t, strings.HasPrefix(saved.Input, "\uFEFF"))

	table, err := svc.Parse(context.Background(), "\uFEFFx,y")
	require.NoError(t, err)
	assert.Equal(t, csvparse.Table{{"x", "y"}}, table)
}

func TestService_ListAndDeleteSnippets(t *testing.T) {
	cfg := testConvertConfig()
	cfg.HistoryLimit = 3
	svc := NewService(cfg, nil, nil)
	ctx := context.Background()

	var last string
	for i := 0; i < 4; i++ {
		res, err := svc.Convert(ctx, ConvertRequest{Input: "a", Save: true})
		require.NoError(t, err)
		last = res.SnippetID
	}

	list, err := svc.ListSnippets(ctx, 100)
	require.NoError(t, err)
	assert.Len(t, list, 3)
	assert.Equal(t, last, list[0].ID)

	list, err = svc.ListSnippets(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, svc.DeleteSnippet(ctx, last))
	_, err = svc.GetSnippet(ctx, last)
	assert.ErrorIs(t, err, ErrSnippetNotFound)
}

func TestService_LimiterStatusAndDrain(t *testing.T) {
	svc := NewService(testConvertConfig(), nil, nil)

	assert.Equal(t, LimiterStatus{Active: 0, Available: 2, MaxConcurrent: 2}, svc.LimiterStatus())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, svc.WaitForConversions(ctx))
}
