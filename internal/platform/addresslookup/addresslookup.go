// Package addresslookup resolves Brazilian postal codes (CEP) to street
// addresses through a ViaCEP-compatible API.
package addresslookup

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

const cacheTTL = 7 * 24 * time.Hour

// Address is the subset of the upstream response the forms use.
type Address struct {
	PostalCode   string `json:"postal_code,omitempty"`
	Street       string `json:"street,omitempty"`
	Neighborhood string `json:"neighborhood,omitempty"`
	City         string `json:"city,omitempty"`
	State        string `json:"state,omitempty"`
}

// Cache is the subset of platform/cache used here.
type Cache interface {
	GetJSON(ctx context.Context, key string, dst interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error
}

type viaCEPResponse struct {
	CEP        string      `json:"cep"`
	Logradouro string      `json:"logradouro"`
	Bairro     string      `json:"bairro"`
	Localidade string      `json:"localidade"`
	UF         string      `json:"uf"`
	Erro       interface{} `json:"erro"`
}

type Client struct {
	baseURL string
	http    *http.Client
	cache   Cache
	logger  zerolog.Logger
}

// NewClient targets baseURL (for example https://viacep.com.br/ws). cache may
// be nil.
func NewClient(baseURL string, cache Cache, logger zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 5 * time.Second},
		cache:   cache,
		logger:  logger,
	}
}

// NormalizePostalCode strips everything but digits and reports whether eight
// remain.
func NormalizePostalCode(s string) (string, bool) {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	d := b.String()
	return d, len(d) == 8
}

// Lookup resolves postalCode. Any failure, including an unknown code, yields
// an empty Address and no error; the cause is logged at debug level.
func (c *Client) Lookup(ctx context.Context, postalCode string) Address {
	cep, ok := NormalizePostalCode(postalCode)
	if !ok {
		c.logger.Debug().Str("postal_code", postalCode).Msg("address lookup: malformed postal code")
		return Address{}
	}

	key := "cep:" + cep
	if c.cache != nil {
		var cached Address
		if hit, err := c.cache.GetJSON(ctx, key, &cached); err == nil && hit {
			return cached
		} else if err != nil {
			c.logger.Debug().Err(err).Msg("address lookup: cache read failed")
		}
	}

	addr, err := c.fetch(ctx, cep)
	if err != nil {
		c.logger.Debug().Err(err).Str("postal_code", cep).Msg("address lookup failed")
		return Address{}
	}

	if c.cache != nil {
		if err := c.cache.SetJSON(ctx, key, addr, cacheTTL); err != nil {
			c.logger.Debug().Err(err).Msg("address lookup: cache write failed")
		}
	}
	return addr
}

func (c *Client) fetch(ctx context.Context, cep string) (Address, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/%s/json/", c.baseURL, cep), nil)
	if err != nil {
		return Address{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Address{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Address{}, fmt.Errorf("upstream status %d", resp.StatusCode)
	}

	var body viaCEPResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Address{}, fmt.Errorf("decode upstream response: %w", err)
	}
	if body.Erro != nil && body.Erro != false && body.Erro != "false" {
		return Address{}, fmt.Errorf("postal code %s not found", cep)
	}

	return Address{
		PostalCode:   formatPostalCode(cep),
		Street:       body.Logradouro,
		Neighborhood: body.Bairro,
		City:         body.Localidade,
		State:        body.UF,
	}, nil
}

func formatPostalCode(d string) string {
	return d[:5] + "-" + d[5:]
}

// Handler serves GET /address/:postal_code.
type Handler struct {
	client *Client
}

func NewHandler(client *Client) *Handler {
	return &Handler{client: client}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/address/:postal_code", h.Lookup)
}

func (h *Handler) Lookup(c echo.Context) error {
	return c.JSON(http.StatusOK, h.client.Lookup(c.Request().Context(), c.Param("postal_code")))
}
