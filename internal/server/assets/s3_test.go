package assets

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/skeleton/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func s3Config() *config.Config {
	return &config.Config{
		S3Region:       "us-east-1",
		S3RootUser:     "minioadmin",
		S3RootPassword: "minioadmin",
		S3BaseEndpoint: "http://127.0.0.1:9000",
		S3Bucket:       "dashboard",
	}
}

// stubS3 replaces the AWS seams for the duration of the test.
func stubS3(t *testing.T, presign func(in *s3.GetObjectInput) (*v4.PresignedHTTPRequest, error)) *s3.Options {
	t.Helper()

	origLoad := loadDefaultAWSConfig
	origNewS3 := newS3ClientFromConfig
	origNewPre := newS3PresignClient
	origGet := presignGetObject
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNewS3
		newS3PresignClient = origNewPre
		presignGetObject = origGet
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		assert.Equal(t, "us-east-1", lo.Region)
		assert.NotNil(t, lo.Credentials)
		return aws.Config{}, nil
	}

	captured := &s3.Options{}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		for _, fn := range optFns {
			fn(captured)
		}
		return &s3.Client{}
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		require.NotNil(t, c)
		return &s3.PresignClient{}
	}

	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		var po s3.PresignOptions
		for _, fn := range optFns {
			fn(&po)
		}
		assert.Equal(t, presignExpiry, po.Expires)
		return presign(in)
	}

	return captured
}

func TestNewS3Store_AppliesEndpoint(t *testing.T) {
	captured := stubS3(t, nil)

	s, err := NewS3Store(context.Background(), s3Config())
	require.NoError(t, err)
	require.NotNil(t, s)

	require.NotNil(t, captured.BaseEndpoint)
	assert.Equal(t, "http://127.0.0.1:9000", *captured.BaseEndpoint)
	assert.True(t, captured.UsePathStyle)
}

func TestNewS3Store_LoadError(t *testing.T) {
	stubS3(t, nil)
	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("load-fail")
	}

	_, err := NewS3Store(context.Background(), s3Config())
	require.EqualError(t, err, "load-fail")
}

func TestS3Store_ServeAssetRedirects(t *testing.T) {
	stubS3(t, func(in *s3.GetObjectInput) (*v4.PresignedHTTPRequest, error) {
		return &v4.PresignedHTTPRequest{URL: "https://s3.example.com/" + *in.Bucket + "/" + *in.Key + "?sig=1"}, nil
	})

	s, err := New(context.Background(), s3Config())
	require.NoError(t, err)
	require.IsType(t, &S3Store{}, s)

	rec := httptest.NewRecorder()
	s.ServeAsset(rec, httptest.NewRequest(http.MethodGet, "/dashboard/js/app.js", nil), "js/app.js")

	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "https://s3.example.com/dashboard/js/app.js?sig=1", rec.Header().Get("Location"))

	rec = httptest.NewRecorder()
	s.ServeAsset(rec, httptest.NewRequest(http.MethodGet, "/dashboard/", nil), "")
	assert.Equal(t, "https://s3.example.com/dashboard/index.html?sig=1", rec.Header().Get("Location"))
}

func TestS3Store_PresignError(t *testing.T) {
	stubS3(t, func(*s3.GetObjectInput) (*v4.PresignedHTTPRequest, error) {
		return nil, errors.New("presign-fail")
	})

	s, err := NewS3Store(context.Background(), s3Config())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	s.ServeAsset(rec, httptest.NewRequest(http.MethodGet, "/dashboard/x", nil), "x")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}
