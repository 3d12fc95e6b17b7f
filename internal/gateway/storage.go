package gateway

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// storageGateway はStorageGatewayの実装。
// 商品画像・アバター画像のアップロードに使用する。
type storageGateway struct {
	c *Client
}

// NewStorageGateway は新しいStorageGatewayを生成する。
func NewStorageGateway(c *Client) StorageGateway {
	return &storageGateway{c: c}
}

// Upload はオブジェクトをアップロードし、公開URLを返す。
// 同名オブジェクトが存在する場合は上書きする。
func (g *storageGateway) Upload(ctx context.Context, bucket, key string, data []byte, contentType string) (string, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	err := g.c.do(ctx, request{
		method: http.MethodPost,
		path:   fmt.Sprintf("/storage/v1/object/%s/%s", bucket, key),
		headers: map[string]string{
			"Content-Type": contentType,
			"x-upsert":     "true",
		},
		raw: data,
	}, nil)
	if err != nil {
		return "", toRemoteError(err)
	}
	return g.PublicURL(bucket, key), nil
}

// PublicURL はオブジェクトの公開URLを組み立てる。
func (g *storageGateway) PublicURL(bucket, key string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s",
		strings.TrimRight(g.c.baseURL, "/"), bucket, key)
}
