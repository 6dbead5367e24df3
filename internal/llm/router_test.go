package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/nao1215/swiftguard/internal/model"
)

func TestRouterGenerate(t *testing.T) {
	t.Parallel()

	available := []model.Availability{model.AvailabilityAvailable}

	tests := []struct {
		name       string
		mode       model.InferenceMode
		cloud      *scriptedRuntime
		wantAnswer string
	}{
		{
			name:       "on-device ignores cloud",
			mode:       model.InferenceOnDevice,
			cloud:      &scriptedRuntime{script: available, answer: "cloud"},
			wantAnswer: "device",
		},
		{
			name:       "prefer cloud",
			mode:       model.InferenceAllowCloud,
			cloud:      &scriptedRuntime{script: available, answer: "cloud"},
			wantAnswer: "cloud",
		},
		{
			name:       "cloud only",
			mode:       model.InferenceCloud,
			cloud:      &scriptedRuntime{script: available, answer: "cloud"},
			wantAnswer: "cloud",
		},
		{
			name:       "cloud failure falls back silently",
			mode:       model.InferenceCloud,
			cloud:      &scriptedRuntime{script: available, createErr: errors.New("quota exceeded")},
			wantAnswer: "device",
		},
		{
			name:       "unreachable cloud falls back",
			mode:       model.InferenceAllowCloud,
			cloud:      &scriptedRuntime{err: errors.New("dial tcp: refused")},
			wantAnswer: "device",
		},
		{
			name:       "downloadable cloud falls back",
			mode:       model.InferenceAllowCloud,
			cloud:      &scriptedRuntime{script: []model.Availability{model.AvailabilityDownloadable}},
			wantAnswer: "device",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			local := NewManager(&scriptedRuntime{script: available, answer: "device"})
			r := NewRouter(local, tt.cloud, nil)

			got, err := r.Generate(context.Background(), tt.mode, SessionOptions{Temperature: 0.25, TopK: 3}, Prompt{Text: "x"})
			if err != nil {
				t.Fatalf("Generate() error = %v", err)
			}
			if got != tt.wantAnswer {
				t.Errorf("Generate() = %q, want %q", got, tt.wantAnswer)
			}
		})
	}

	t.Run("nil cloud runs on device", func(t *testing.T) {
		t.Parallel()

		local := NewManager(&scriptedRuntime{script: available, answer: "device"})
		got, err := NewRouter(local, nil, nil).Generate(context.Background(), model.InferenceCloud, SessionOptions{}, Prompt{})
		if err != nil || got != "device" {
			t.Errorf("Generate() = %q, %v", got, err)
		}
	})

	t.Run("device failure is returned", func(t *testing.T) {
		t.Parallel()

		local := NewManager(&scriptedRuntime{script: []model.Availability{model.AvailabilityUnavailable}})
		cloud := &scriptedRuntime{err: errors.New("offline")}
		_, err := NewRouter(local, cloud, nil).Generate(context.Background(), model.InferenceAllowCloud, SessionOptions{}, Prompt{})
		if !errors.Is(err, ErrModelUnavailable) {
			t.Errorf("err = %v, want ErrModelUnavailable", err)
		}
	})
}
