package main

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/transwatch/models"
	"github.com/use-agent/transwatch/webhook"
)

type stubChecker struct {
	loud, quiet int
	report      *models.Report
	err         error
}

func (s *stubChecker) Run(context.Context) (*models.Report, error) {
	s.loud++
	return s.report, s.err
}

func (s *stubChecker) RunQuiet(context.Context) (*models.Report, error) {
	s.quiet++
	return s.report, s.err
}

func callTool(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestHandleCheck_NotifyFlag(t *testing.T) {
	c := &stubChecker{report: &models.Report{
		RunID: "r1",
		Result: &models.CheckResult{
			TranslatedPercent: "87%", ApprovedPercent: "90%", WordsToTranslate: "42", IsThereAJob: true,
		},
		LayoutDistance: -1,
	}}
	h := handleCheck(c)

	res, err := h(context.Background(), callTool(nil))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Contains(t, resultText(t, res), "Translation work remains")
	assert.Equal(t, 1, c.quiet)

	_, err = h(context.Background(), callTool(map[string]any{"notify": true}))
	require.NoError(t, err)
	assert.Equal(t, 1, c.loud)
}

func TestHandleCheck_Failure(t *testing.T) {
	c := &stubChecker{
		report: &models.Report{RunID: "r2"},
		err:    models.NewCheckError(models.ErrCodeNavigation, "navigation failed", nil),
	}

	res, err := handleCheck(c)(context.Background(), callTool(nil))

	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), models.ErrCodeNavigation)
}

func TestHandlePreview(t *testing.T) {
	res, err := handlePreview()(context.Background(), callTool(map[string]any{
		"translated_percent": "100%",
		"approved_percent":   "100%",
		"words_to_translate": "0",
	}))
	require.NoError(t, err)

	var p webhook.Payload
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &p))
	assert.Equal(t, webhook.ColorComplete, p.Embeds[0].Color)
	assert.Equal(t, "0", p.Embeds[0].Fields[2].Value)
}

func TestHandlePreview_MissingWords(t *testing.T) {
	res, err := handlePreview()(context.Background(), callTool(map[string]any{
		"translated_percent": "87%",
		"approved_percent":   "100%",
	}))
	require.NoError(t, err)

	var p webhook.Payload
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &p))
	assert.Equal(t, webhook.ColorWarning, p.Embeds[0].Color)
	assert.Equal(t, models.NotFound, p.Embeds[0].Fields[2].Value)
}

func TestHandlePreview_RequiresPercentages(t *testing.T) {
	res, err := handlePreview()(context.Background(), callTool(map[string]any{"approved_percent": "1%"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), models.ErrCodeInvalidInput)
}
