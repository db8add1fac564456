package clients

import (
	"context"
	"time"

	"library-system/pkg/loans"
)

type CatalogClient struct {
	client
}

func NewCatalogClient(baseURL string, timeout time.Duration, maxFailures int, cooldown time.Duration) *CatalogClient {
	return &CatalogClient{client: newClient(baseURL, timeout, maxFailures, cooldown)}
}

func (c *CatalogClient) GetBook(ctx context.Context, bookUid string) (*loans.Book, error) {
	var book loans.Book
	if err := c.do(ctx, "GET", "/api/v1/books/"+bookUid, "book", nil, nil, &book); err != nil {
		return nil, err
	}
	return &book, nil
}
