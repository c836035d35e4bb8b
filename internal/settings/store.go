package settings

import (
	"context"
	"fmt"
	"strings"

	"github.com/ziadkadry99/ewriter/internal/kvstore"
	"github.com/ziadkadry99/ewriter/internal/logging"
)

// Store reads and writes Settings in the sync area. Nothing is cached:
// every Load goes to the underlying store.
type Store struct {
	kv *kvstore.Bound
}

// NewStore creates a settings Store over kv.
func NewStore(kv *kvstore.Store) *Store {
	return &Store{kv: kv.In(kvstore.AreaSync)}
}

// Load returns the current settings. When nothing has been stored yet the
// defaults are written and returned; individually missing keys take their defaults.
func (s *Store) Load(ctx context.Context) (Settings, error) {
	values, err := s.kv.Get(ctx, allKeys...)
	if err != nil {
		return Settings{}, fmt.Errorf("loading settings: %w", err)
	}

	out := Defaults()
	if len(values) == 0 {
		if err := s.write(ctx, out); err != nil {
			logging.FromContext(ctx).Warn().Err(err).Msg("could not persist default settings")
		}
		return out, nil
	}

	var provider, style string
	if kvstore.Decode(values, KeyAPIProvider, &provider) && Provider(provider).Valid() {
		out.APIProvider = Provider(provider)
	}
	if kvstore.Decode(values, KeyWritingStyle, &style) && Style(style).Valid() {
		out.WritingStyle = Style(style)
	}
	kvstore.Decode(values, KeyGeminiAPIKey, &out.GeminiAPIKey)
	kvstore.Decode(values, KeyOpenAIAPIKey, &out.OpenAIAPIKey)
	kvstore.Decode(values, KeyIsEnabled, &out.IsEnabled)

	return out, nil
}

// Save validates and persists s. The enabled flag is left untouched; it is
// owned by SetEnabled.
func (s *Store) Save(ctx context.Context, st Settings) error {
	st.GeminiAPIKey = strings.TrimSpace(st.GeminiAPIKey)
	st.OpenAIAPIKey = strings.TrimSpace(st.OpenAIAPIKey)
	if err := st.Validate(); err != nil {
		return err
	}
	return s.kv.Set(ctx, map[string]any{
		KeyAPIProvider:  st.APIProvider,
		KeyGeminiAPIKey: st.GeminiAPIKey,
		KeyOpenAIAPIKey: st.OpenAIAPIKey,
		KeyWritingStyle: st.WritingStyle,
	})
}

// SetEnabled persists the enabled flag.
func (s *Store) SetEnabled(ctx context.Context, enabled bool) error {
	return s.kv.Set(ctx, map[string]any{KeyIsEnabled: enabled})
}

// ToggleEnabled flips the stored enabled flag and returns the new value.
// An unset flag toggles to false.
func (s *Store) ToggleEnabled(ctx context.Context) (bool, error) {
	values, err := s.kv.Get(ctx, KeyIsEnabled)
	if err != nil {
		return false, fmt.Errorf("reading enabled flag: %w", err)
	}

	next := false
	var current bool
	if kvstore.Decode(values, KeyIsEnabled, &current) {
		next = !current
	}

	if err := s.SetEnabled(ctx, next); err != nil {
		return false, err
	}
	return next, nil
}

func (s *Store) write(ctx context.Context, st Settings) error {
	return s.kv.Set(ctx, map[string]any{
		KeyAPIProvider:  st.APIProvider,
		KeyGeminiAPIKey: st.GeminiAPIKey,
		KeyOpenAIAPIKey: st.OpenAIAPIKey,
		KeyWritingStyle: st.WritingStyle,
		KeyIsEnabled:    st.IsEnabled,
	})
}
