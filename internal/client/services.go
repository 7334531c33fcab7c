package client

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// User is the public view of an account.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Author struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Dynasty string `json:"dynasty,omitempty"`
}

type Poem struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	AuthorID    string    `json:"authorId"`
	Type        string    `json:"type"`
	Tags        []string  `json:"tags"`
	Dynasty     string    `json:"dynasty,omitempty"`
	Source      string    `json:"source"`
	Status      string    `json:"status"`
	SubmitterID string    `json:"submitterId,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// NewPoem is a poem submission.
type NewPoem struct {
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	AuthorID string   `json:"authorId,omitempty"`
	Type     string   `json:"type,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	Dynasty  string   `json:"dynasty,omitempty"`
}

// PoemFilter narrows ListPoems. Zero values are omitted.
type PoemFilter struct {
	Title       string
	Type        string
	Tags        []string
	Source      string
	Dynasty     string
	SubmitterID string
	AuthorID    string
	Status      string
	Page        int
	PageSize    int
}

func (f PoemFilter) values() url.Values {
	v := url.Values{}
	set := func(k, s string) {
		if s != "" {
			v.Set(k, s)
		}
	}
	set("title", f.Title)
	set("type", f.Type)
	set("source", f.Source)
	set("dynasty", f.Dynasty)
	set("submitter", f.SubmitterID)
	set("author", f.AuthorID)
	set("status", f.Status)
	for _, t := range f.Tags {
		v.Add("tags", t)
	}
	if f.Page > 0 {
		v.Set("page", strconv.Itoa(f.Page))
	}
	if f.PageSize > 0 {
		v.Set("pageSize", strconv.Itoa(f.PageSize))
	}
	return v
}

type PoemPage struct {
	Items    []Poem `json:"items"`
	Total    int64  `json:"total"`
	Page     int    `json:"page"`
	PageSize int    `json:"pageSize"`
}

// Confirmation acknowledges a queued reset email.
type Confirmation struct {
	MessageID string    `json:"messageId"`
	Recipient string    `json:"recipient"`
	SentAt    time.Time `json:"sentAt"`
}

// Profile is the signed-in principal as the server sees it.
type Profile struct {
	User        User     `json:"user"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
}

type sessionPayload struct {
	User         User     `json:"user"`
	Roles        []string `json:"roles"`
	Permissions  []string `json:"permissions"`
	AccessToken  string   `json:"accessToken"`
	RefreshToken string   `json:"refreshToken"`
}

func (p sessionPayload) session() Session {
	return Session{
		User:         p.User,
		Roles:        p.Roles,
		Permissions:  p.Permissions,
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
	}
}

// Login signs in and stores the session.
func (c *Client) Login(ctx context.Context, email, password string) (Session, error) {
	var out sessionPayload
	err := c.Do(WithoutRefresh(ctx), http.MethodPost, "/auth/login",
		map[string]string{"email": email, "password": password}, &out)
	if err != nil {
		return Session{}, err
	}
	sess := out.session()
	if err := c.sessions.Save(sess); err != nil {
		return Session{}, err
	}
	return sess, nil
}

// Register creates an account. It does not sign in.
func (c *Client) Register(ctx context.Context, email, password, name string) (User, []string, error) {
	var out struct {
		User  User     `json:"user"`
		Roles []string `json:"roles"`
	}
	err := c.Do(WithoutRefresh(ctx), http.MethodPost, "/auth/register",
		map[string]string{"email": email, "password": password, "name": name}, &out)
	return out.User, out.Roles, err
}

// Logout clears the local session even when the server call fails.
func (c *Client) Logout(ctx context.Context) error {
	callErr := c.Do(WithoutRefresh(ctx), http.MethodPost, "/auth/logout", nil, nil)
	return errors.Join(callErr, c.sessions.Clear())
}

func (c *Client) RequestPasswordReset(ctx context.Context, email string) (Confirmation, error) {
	var out struct {
		Confirmation Confirmation `json:"confirmation"`
	}
	err := c.Do(WithoutRefresh(ctx), http.MethodPost, "/auth/send-email",
		map[string]string{"email": email}, &out)
	return out.Confirmation, err
}

func (c *Client) ResetPassword(ctx context.Context, email, password, token string) error {
	return c.Do(WithoutRefresh(ctx), http.MethodPost, "/auth/reset-password",
		map[string]string{"email": email, "password": password, "token": token}, nil)
}

func (c *Client) Me(ctx context.Context) (Profile, error) {
	var out Profile
	err := c.Do(ctx, http.MethodGet, "/auth/me", nil, &out)
	return out, err
}

func (c *Client) ListAuthors(ctx context.Context) ([]Author, error) {
	var out struct {
		Items []Author `json:"items"`
	}
	err := c.Do(ctx, http.MethodGet, "/author", nil, &out)
	return out.Items, err
}

func (c *Client) CreateAuthor(ctx context.Context, name, dynasty string) (Author, error) {
	var out struct {
		Author Author `json:"author"`
	}
	err := c.Do(ctx, http.MethodPost, "/author", map[string]string{"name": name, "dynasty": dynasty}, &out)
	return out.Author, err
}

func (c *Client) ListPoems(ctx context.Context, f PoemFilter) (PoemPage, error) {
	path := "/poetry"
	if q := f.values().Encode(); q != "" {
		path += "?" + q
	}
	var out PoemPage
	err := c.Do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (c *Client) GetPoem(ctx context.Context, id string) (Poem, error) {
	var out struct {
		Poem Poem `json:"poem"`
	}
	err := c.Do(ctx, http.MethodGet, "/poetry/"+url.PathEscape(id), nil, &out)
	return out.Poem, err
}

func (c *Client) CreatePoem(ctx context.Context, p NewPoem) (Poem, error) {
	var out struct {
		Poem Poem `json:"poem"`
	}
	err := c.Do(ctx, http.MethodPost, "/poetry", p, &out)
	return out.Poem, err
}

func (c *Client) DeletePoem(ctx context.Context, id string) error {
	return c.Do(ctx, http.MethodDelete, "/poetry/"+url.PathEscape(id), nil, nil)
}
