package voice

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/gmsas95/medicinett/internal/config"
)

// Translator normalizes non-English transcripts via the MyMemory API before
// they reach the parser. Translation is best-effort: any failure falls back
// to the raw transcript.
type Translator struct {
	cfg    config.VoiceConfig
	client *http.Client
	logger *zap.Logger
}

func NewTranslator(cfg config.VoiceConfig, logger *zap.Logger) *Translator {
	return &Translator{
		cfg: cfg,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

type myMemoryResponse struct {
	ResponseData struct {
		TranslatedText string `json:"translatedText"`
	} `json:"responseData"`
}

// Translate returns text unchanged when it is pure ASCII (already English),
// translation is disabled, or the API call fails.
func (t *Translator) Translate(ctx context.Context, text string) string {
	if text == "" || !t.cfg.TranslateEnabled || isASCII(text) {
		return text
	}

	params := url.Values{}
	params.Set("q", text)
	params.Set("langpair", fmt.Sprintf("%s|%s", t.cfg.SourceLang, t.cfg.TargetLang))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.cfg.TranslateURL+"?"+params.Encode(), nil)
	if err != nil {
		t.logger.Warn("Failed to build translate request", zap.Error(err))
		return text
	}

	resp, err := t.client.Do(req)
	if err != nil {
		t.logger.Warn("Translation request failed", zap.Error(err))
		return text
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.logger.Warn("Translation request rejected", zap.Int("status", resp.StatusCode))
		return text
	}

	var body myMemoryResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.logger.Warn("Failed to decode translation response", zap.Error(err))
		return text
	}
	if body.ResponseData.TranslatedText == "" {
		return text
	}
	return body.ResponseData.TranslatedText
}

func isASCII(s string) bool {
	for _, r := range s {
		if r > 127 {
			return false
		}
	}
	return true
}
