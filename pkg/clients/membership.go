package clients

import (
	"context"
	"time"

	"library-system/pkg/loans"
)

type MembershipClient struct {
	client
}

func NewMembershipClient(baseURL string, timeout time.Duration, maxFailures int, cooldown time.Duration) *MembershipClient {
	return &MembershipClient{client: newClient(baseURL, timeout, maxFailures, cooldown)}
}

func (c *MembershipClient) GetMember(ctx context.Context, memberUid string) (*loans.Member, error) {
	var member loans.Member
	if err := c.do(ctx, "GET", "/api/v1/members/"+memberUid, "member", nil, nil, &member); err != nil {
		return nil, err
	}
	return &member, nil
}
