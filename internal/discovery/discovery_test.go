package discovery

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeGenerator struct {
	response string
	err      error
	prompt   string
	system   string
}

func (f *fakeGenerator) Generate(_ context.Context, system, prompt string) (string, error) {
	f.system = system
	f.prompt = prompt
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func TestDiscover_ParsesJSONArray(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{response: `以下が候補です。
["https://kanto-unso.co.jp", "https://kyushu-butsuryu.jp", "ftp://not-a-site.jp"]`}
	d := New(gen, zap.NewNop())

	urls, err := d.Discover(context.Background(), "関東 運送会社")

	require.NoError(t, err)
	assert.Equal(t, []string{"https://kanto-unso.co.jp", "https://kyushu-butsuryu.jp"}, urls)
	assert.Equal(t, "関東 運送会社", gen.prompt)
	assert.Contains(t, gen.system, "JSON")
}

func TestDiscover_FallsBackToURLScan(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{response: `候補は次の通りです:
1. https://tohoku-trans.co.jp のサイト
2. http://shikoku-line.jp
詳細は各社にお問い合わせください。`}
	d := New(gen, zap.NewNop())

	urls, err := d.Discover(context.Background(), "q")

	require.NoError(t, err)
	assert.Equal(t, []string{"https://tohoku-trans.co.jp", "http://shikoku-line.jp"}, urls)
}

func TestDiscover_MalformedResponseYieldsZeroCandidates(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{response: "申し訳ありませんが、候補が見つかりませんでした。"}
	d := New(gen, zap.NewNop())

	urls, err := d.Discover(context.Background(), "q")

	require.NoError(t, err)
	assert.Empty(t, urls)
}

func TestDiscover_CapsAtFifteen(t *testing.T) {
	t.Parallel()

	var sb strings.Builder
	sb.WriteString("[")
	for i := 0; i < 20; i++ {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(`"https://carrier-` + string(rune('a'+i)) + `.co.jp"`)
	}
	sb.WriteString("]")

	d := New(&fakeGenerator{response: sb.String()}, zap.NewNop())
	urls, err := d.Discover(context.Background(), "q")

	require.NoError(t, err)
	assert.Len(t, urls, maxURLsPerQuery)
}

func TestDiscover_OracleErrorPropagates(t *testing.T) {
	t.Parallel()

	oracleErr := errors.New("credential rejected")
	d := New(&fakeGenerator{err: oracleErr}, zap.NewNop())

	_, err := d.Discover(context.Background(), "q")

	require.ErrorIs(t, err, oracleErr)
}
