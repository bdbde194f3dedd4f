package services

import (
	"context"
	"sync"

	"google.golang.org/api/option"
	vision "google.golang.org/api/vision/v1"
)

type SafeSearchResult struct {
	Adult    string
	Violence string
	Racy     string
	Spoof    string
	Medical  string
}

var (
	visionOnce sync.Once
	visionSvc  *vision.Service
	visionErr  error
)

// visionService is created once per process using Application Default
// Credentials.
func visionService(ctx context.Context) (*vision.Service, error) {
	visionOnce.Do(func() {
		visionSvc, visionErr = vision.NewService(context.WithoutCancel(ctx), option.WithScopes(vision.CloudPlatformScope))
	})
	return visionSvc, visionErr
}

// DetectSafeSearch runs Vision SAFE_SEARCH_DETECTION on a GCS URI.
func DetectSafeSearch(ctx context.Context, gcsURI string) (*SafeSearchResult, error) {
	svc, err := visionService(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := svc.Images.Annotate(&vision.BatchAnnotateImagesRequest{
		Requests: []*vision.AnnotateImageRequest{{
			Image:    &vision.Image{Source: &vision.ImageSource{GcsImageUri: gcsURI}},
			Features: []*vision.Feature{{Type: "SAFE_SEARCH_DETECTION"}},
		}},
	}).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	if len(resp.Responses) == 0 || resp.Responses[0].SafeSearchAnnotation == nil {
		return &SafeSearchResult{}, nil
	}

	ss := resp.Responses[0].SafeSearchAnnotation
	return &SafeSearchResult{
		Adult:    ss.Adult,
		Violence: ss.Violence,
		Racy:     ss.Racy,
		Spoof:    ss.Spoof,
		Medical:  ss.Medical,
	}, nil
}

func likelyOrHigher(l string) bool {
	return l == "LIKELY" || l == "VERY_LIKELY"
}

// IsUnsafe is true when adult, violent or racy content is at least LIKELY.
// Spoof and medical are informational only.
func (r *SafeSearchResult) IsUnsafe() bool {
	return likelyOrHigher(r.Adult) || likelyOrHigher(r.Violence) || likelyOrHigher(r.Racy)
}
