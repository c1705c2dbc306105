package pdf

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRunner returns canned pdftotext output.
type fakeRunner struct {
	output   []byte
	err      error
	gotName  string
	gotArgs  []string
	gotStdin []byte
}

func (f *fakeRunner) Run(_ context.Context, name string, stdin []byte, args ...string) ([]byte, error) {
	f.gotName = name
	f.gotArgs = args
	f.gotStdin = stdin
	return f.output, f.err
}

func TestExtractor_PageMarkers(t *testing.T) {
	runner := &fakeRunner{output: []byte("first page text\fsecond page text")}
	extractor := NewWithRunner(runner)

	text, err := extractor.ExtractText(context.Background(), []byte("%PDF"))
	require.NoError(t, err)

	assert.Equal(t, "[Page 1]\nfirst page text\n\n[Page 2]\nsecond page text", text)
	assert.Equal(t, "pdftotext", runner.gotName)
	assert.Equal(t, []string{"-enc", "UTF-8", "-", "-"}, runner.gotArgs)
	assert.Equal(t, []byte("%PDF"), runner.gotStdin)
}

func TestExtractor_SkipsBlankPages(t *testing.T) {
	runner := &fakeRunner{output: []byte("text\f   \n\f more text ")}
	extractor := NewWithRunner(runner)

	text, err := extractor.ExtractText(context.Background(), []byte("%PDF"))
	require.NoError(t, err)

	// Page numbering follows the document, not the surviving pages.
	assert.Equal(t, "[Page 1]\ntext\n\n[Page 3]\nmore text", text)
}

func TestExtractor_EmptyDocument(t *testing.T) {
	runner := &fakeRunner{output: []byte("\f\f")}
	extractor := NewWithRunner(runner)

	text, err := extractor.ExtractText(context.Background(), []byte("%PDF"))
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestExtractor_RunnerFailure(t *testing.T) {
	runner := &fakeRunner{err: errors.New("exit status 1")}
	extractor := NewWithRunner(runner)

	_, err := extractor.ExtractText(context.Background(), []byte("junk"))
	assert.Error(t, err)
}
