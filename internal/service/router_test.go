package service

import (
	"errors"
	"testing"

	"advisor-stream/internal/config"
	"advisor-stream/internal/model"
)

func testClientConfig() config.ClientConfig {
	return config.ClientConfig{
		BaseURL:      "http://advisor.local/",
		MentorPath:   "/api/advisor/stream",
		DatasetPath:  "/api/dataset/{dataset_id}/stream",
		AnalysisPath: "/api/analysis/stream",
	}
}

func TestBuildRequestPerSurface(t *testing.T) {
	r := NewRouter(testClientConfig())

	tests := []struct {
		name         string
		topic        model.Topic
		wantEndpoint string
		wantTopicID  string
	}{
		{
			name:         "mentor",
			topic:        model.Topic{Surface: model.SurfaceMentor},
			wantEndpoint: "http://advisor.local/api/advisor/stream",
			wantTopicID:  "general",
		},
		{
			name:         "dataset",
			topic:        model.Topic{Surface: model.SurfaceDataset, DatasetID: "d-77"},
			wantEndpoint: "http://advisor.local/api/dataset/d-77/stream",
			wantTopicID:  "d-77",
		},
		{
			name:         "analysis",
			topic:        model.Topic{Surface: model.SurfaceAnalysis},
			wantEndpoint: "http://advisor.local/api/analysis/stream",
			wantTopicID:  "analysis",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := r.BuildRequest(tt.topic, "问题", "c1")
			if err != nil {
				t.Fatalf("BuildRequest: %v", err)
			}
			if req.Endpoint != tt.wantEndpoint {
				t.Errorf("Endpoint = %q, want %q", req.Endpoint, tt.wantEndpoint)
			}
			if req.TopicID != tt.wantTopicID {
				t.Errorf("TopicID = %q, want %q", req.TopicID, tt.wantTopicID)
			}
			if req.Question != "问题" || req.ConversationID != "c1" {
				t.Errorf("request = %+v", req)
			}
		})
	}
}

func TestBuildRequestDatasetRequiresID(t *testing.T) {
	r := NewRouter(testClientConfig())

	_, err := r.BuildRequest(model.Topic{Surface: model.SurfaceDataset}, "问题", "")
	if !errors.Is(err, ErrMissingDatasetID) {
		t.Fatalf("err = %v, want ErrMissingDatasetID", err)
	}
}

func TestBuildRequestUnknownSurface(t *testing.T) {
	r := NewRouter(testClientConfig())

	_, err := r.BuildRequest(model.Topic{Surface: "forum"}, "问题", "")
	if !errors.Is(err, ErrUnknownSurface) {
		t.Fatalf("err = %v, want ErrUnknownSurface", err)
	}
}
