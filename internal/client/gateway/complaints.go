package gateway

import (
	"context"
	"fmt"
	"net/http"

	"github.com/staffdesk/staffdesk/internal/apperr"
	"github.com/staffdesk/staffdesk/internal/models"
)

// Endpoint paths of the staff API.
const (
	PathProfile          = "/api/user/profile/"
	PathCreateComplaint  = "/api/user/complaints/create/"
	PathDashboard        = "/api/user/dashboard/"
	PathPublicComplaints = "/api/user/dashboard/public-anonymous/"
)

// DeleteComplaintPath returns the delete endpoint of complaint id.
func DeleteComplaintPath(id int64) string {
	return fmt.Sprintf("/api/user/complaints/%d/delete/", id)
}

// Profile fetches the profile of the signed-in staff member.
func (c *Client) Profile(ctx context.Context) (models.Profile, error) {
	var out models.Profile
	err := c.get(ctx, PathProfile, &out)
	return out, err
}

// CreateComplaint files a complaint.
func (c *Client) CreateComplaint(ctx context.Context, req models.ComplaintRequest) (models.ComplaintReceipt, error) {
	var out models.ComplaintReceipt
	resp, err := c.do(ctx, call{
		method:   http.MethodPost,
		path:     PathCreateComplaint,
		body:     req,
		fallback: apperr.CodeValidation,
	})
	if err != nil {
		return out, err
	}
	err = resp.data(&out)
	return out, err
}

// Dashboard lists the complaints of the signed-in staff member.
func (c *Client) Dashboard(ctx context.Context) (models.Dashboard, error) {
	var out models.Dashboard
	err := c.get(ctx, PathDashboard, &out)
	return out, err
}

// PublicComplaints lists complaints filed anonymously in public scope.
func (c *Client) PublicComplaints(ctx context.Context) (models.Dashboard, error) {
	var out models.Dashboard
	err := c.get(ctx, PathPublicComplaints, &out)
	return out, err
}

// DeleteComplaint removes complaint id.
func (c *Client) DeleteComplaint(ctx context.Context, id int64) error {
	_, err := c.do(ctx, call{
		method:   http.MethodDelete,
		path:     DeleteComplaintPath(id),
		fallback: apperr.CodeValidation,
	})
	return err
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	resp, err := c.do(ctx, call{
		method:   http.MethodGet,
		path:     path,
		fallback: apperr.CodeValidation,
	})
	if err != nil {
		return err
	}
	return resp.data(out)
}
