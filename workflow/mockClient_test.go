package workflow

import (
	"context"

	"github.com/bitrise-io/go-compressor/network"
	"github.com/stretchr/testify/mock"
)

// MockClient ...
type MockClient struct {
	mock.Mock
}

// Upload ...
func (m *MockClient) Upload(ctx context.Context, params network.UploadParams) (network.UploadResponse, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(network.UploadResponse), args.Error(1)
}

// Compress ...
func (m *MockClient) Compress(ctx context.Context, params network.CompressParams) (network.CompressResponse, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(network.CompressResponse), args.Error(1)
}

// GivenUploadSucceeds ...
func (m *MockClient) GivenUploadSucceeds(fileID string) *MockClient {
	m.On("Upload", mock.Anything, mock.Anything).Return(network.UploadResponse{FileID: network.NewFileID(fileID)}, nil)
	return m
}

// GivenCompressSucceeds ...
func (m *MockClient) GivenCompressSucceeds(fileID string, quality int, resp network.CompressResponse) *MockClient {
	m.On("Compress", mock.Anything, mock.MatchedBy(func(params network.CompressParams) bool {
		return params.FileID.String() == fileID && params.Quality == quality
	})).Return(resp, nil)
	return m
}
