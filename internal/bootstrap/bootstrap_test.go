package bootstrap

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-scanner/constants"
	"github.com/joseph-ayodele/invoice-scanner/internal/common"
	"github.com/joseph-ayodele/invoice-scanner/internal/events"
)

func baseConfig(t *testing.T) *common.Config {
	t.Helper()
	dir := t.TempDir()
	return &common.Config{
		Paths:      common.PathsConfig{Input: filepath.Join(dir, "in"), Output: filepath.Join(dir, "out"), Ledger: filepath.Join(dir, "log.xlsx")},
		Extraction: common.ExtractionConfig{Method: "pdfreader"},
		LLM:        common.LLMConfig{Provider: "openai", APIKey: "sk-test", Model: "gpt-4.1-mini", Temperature: 0.1},
	}
}

func TestNewTextExtractorSelectsMethod(t *testing.T) {
	cases := map[string]constants.ExtractionMethod{
		"pdf-parse": constants.MethodLibraryParse,
		"library":   constants.MethodLibraryParse,
		"pdfreader": constants.MethodRuleReader,
		"":          constants.MethodRuleReader,
		"mistral":   constants.MethodRemoteOCR,
	}
	for in, want := range cases {
		t.Run(in, func(t *testing.T) {
			cfg := baseConfig(t)
			cfg.Extraction.Method = in
			cfg.Mistral.APIKey = "m-key"
			tx, m, err := NewTextExtractor(cfg, nil)
			require.NoError(t, err)
			assert.NotNil(t, tx)
			assert.Equal(t, want, m)
		})
	}
}

func TestNewTextExtractorRejectsUnknown(t *testing.T) {
	cfg := baseConfig(t)
	cfg.Extraction.Method = "magic"
	_, _, err := NewTextExtractor(cfg, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrConfiguration))
}

func TestBuildMissingRemoteCredential(t *testing.T) {
	cfg := baseConfig(t)
	cfg.Extraction.Method = "mistral"
	_, err := Build(context.Background(), cfg, events.Discard{}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrConfiguration))
	assert.Contains(t, err.Error(), "MISTRAL_API_KEY")
}

func TestBuildMissingLLMKey(t *testing.T) {
	cfg := baseConfig(t)
	cfg.LLM.APIKey = ""
	_, err := Build(context.Background(), cfg, nil, nil)
	require.Error(t, err)
	assert.True(t, common.IsFatal(err))
}

func TestBuildWithJournal(t *testing.T) {
	cfg := baseConfig(t)
	cfg.Journal.DSN = filepath.Join(t.TempDir(), "journal.db")

	app, err := Build(context.Background(), cfg, nil, nil)
	require.NoError(t, err)
	defer app.Close()
	assert.NotNil(t, app.Processor)
	require.NotNil(t, app.Journal)
	assert.NoError(t, app.Journal.Ping(context.Background()))
}

func TestBuildRunsEmptyInput(t *testing.T) {
	cfg := baseConfig(t)
	app, err := Build(context.Background(), cfg, nil, nil)
	require.NoError(t, err)
	defer app.Close()

	// the input directory does not exist yet
	_, err = app.Processor.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrEnumeration))
}
