package simulator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// StatusError is returned when the API answers with an unexpected status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// Client talks to the tracking REST API.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type createCourierBody struct {
	ID     string `json:"livreur_id"`
	Name   string `json:"nom"`
	Phone  string `json:"telephone"`
	Active bool   `json:"actif"`
}

type positionBody struct {
	Courier   string  `json:"livreur"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// EnsureCourier registers the courier. An existing courier (409) is not an error.
func (c *Client) EnsureCourier(ctx context.Context, spec CourierSpec) (created bool, err error) {
	code, err := c.post(ctx, "/livreurs/", createCourierBody{
		ID:     spec.ID,
		Name:   spec.Name,
		Phone:  spec.Phone,
		Active: true,
	}, http.StatusOK, http.StatusCreated, http.StatusConflict)
	if err != nil {
		return false, err
	}
	return code == http.StatusCreated, nil
}

func (c *Client) SubmitPosition(ctx context.Context, courierID string, p Point) error {
	_, err := c.post(ctx, "/positions/", positionBody{
		Courier:   courierID,
		Latitude:  p.Lat,
		Longitude: p.Lng,
	}, http.StatusOK, http.StatusCreated)
	return err
}

func (c *Client) post(ctx context.Context, path string, body any, accept ...int) (int, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	for _, code := range accept {
		if resp.StatusCode == code {
			_, _ = io.Copy(io.Discard, resp.Body)
			return code, nil
		}
	}
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return resp.StatusCode, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
}
