// Package speech wraps the speech-to-text provider behind the Recognizer
// interface. The production implementation calls Google Cloud Speech v2 with
// the explicit decoding settings the mobile app records with (LINEAR16,
// 16 kHz, mono). Transcribing silence is not an error here: the gateway
// returns an empty transcript and the caller decides what that means.
package speech

import (
	"context"
	"fmt"

	speechv2 "cloud.google.com/go/speech/apiv2"
	"cloud.google.com/go/speech/apiv2/speechpb"
	"google.golang.org/api/option"
)

// Recognizer converts raw audio bytes to a transcript. An empty string with
// a nil error means the provider heard nothing.
type Recognizer interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// Config carries the recognition settings of the deployment.
type Config struct {
	ProjectID       string
	LanguageCode    string // e.g. "ko-KR"
	SampleRateHertz int32  // e.g. 16000
	Model           string // e.g. "latest_short"
	CredentialsFile string
}

// GoogleRecognizer implements Recognizer on Google Cloud Speech v2 using the
// default global recognizer of the project.
type GoogleRecognizer struct {
	client *speechv2.Client
	cfg    Config
}

// NewGoogleRecognizer dials the Speech v2 API.
func NewGoogleRecognizer(ctx context.Context, cfg Config) (*GoogleRecognizer, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := speechv2.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create speech client: %w", err)
	}
	return &GoogleRecognizer{client: client, cfg: cfg}, nil
}

// Close releases the underlying gRPC connection.
func (r *GoogleRecognizer) Close() error { return r.client.Close() }

// Transcribe runs synchronous recognition over the audio and returns the top
// alternative of the first result, or "" when the provider produced none.
func (r *GoogleRecognizer) Transcribe(ctx context.Context, audio []byte) (string, error) {
	req := &speechpb.RecognizeRequest{
		Recognizer: fmt.Sprintf("projects/%s/locations/global/recognizers/_", r.cfg.ProjectID),
		Config: &speechpb.RecognitionConfig{
			DecodingConfig: &speechpb.RecognitionConfig_ExplicitDecodingConfig{
				ExplicitDecodingConfig: &speechpb.ExplicitDecodingConfig{
					Encoding:          speechpb.ExplicitDecodingConfig_LINEAR16,
					SampleRateHertz:   r.cfg.SampleRateHertz,
					AudioChannelCount: 1,
				},
			},
			LanguageCodes: []string{r.cfg.LanguageCode},
			Model:         r.cfg.Model,
		},
		AudioSource: &speechpb.RecognizeRequest_Content{Content: audio},
	}

	resp, err := r.client.Recognize(ctx, req)
	if err != nil {
		return "", fmt.Errorf("speech recognize: %w", err)
	}
	for _, res := range resp.GetResults() {
		if alts := res.GetAlternatives(); len(alts) > 0 {
			return alts[0].GetTranscript(), nil
		}
	}
	return "", nil
}
