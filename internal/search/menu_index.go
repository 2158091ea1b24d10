package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/elastic/go-elasticsearch/v9/esapi"

	"github.com/Skotchmaster/chopchop_pos/internal/models"
)

const maxHits = 500

// MenuIndex mirrors the menu catalog into an Elasticsearch index for
// substring search. The database stays authoritative; the index only
// supplies matching ids.
type MenuIndex struct {
	ES    *elasticsearch.Client
	Index string
}

type menuDoc struct {
	ID            uint   `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	NameLC        string `json:"name_lc"`
	DescriptionLC string `json:"description_lc"`
	Available     bool   `json:"available"`
	IsPromo       bool   `json:"is_promo"`
	CategoryID    uint   `json:"category_id"`
}

func docOf(m models.Menu) menuDoc {
	return menuDoc{
		ID:            m.ID,
		Name:          m.Name,
		Description:   m.Description,
		NameLC:        strings.ToLower(m.Name),
		DescriptionLC: strings.ToLower(m.Description),
		Available:     m.Available,
		IsPromo:       m.IsPromo,
		CategoryID:    m.CategoryID,
	}
}

var indexMapping = map[string]any{
	"mappings": map[string]any{
		"properties": map[string]any{
			"id":             map[string]any{"type": "long"},
			"name":           map[string]any{"type": "text"},
			"description":    map[string]any{"type": "text"},
			"name_lc":        map[string]any{"type": "keyword"},
			"description_lc": map[string]any{"type": "keyword", "ignore_above": 4096},
			"available":      map[string]any{"type": "boolean"},
			"is_promo":       map[string]any{"type": "boolean"},
			"category_id":    map[string]any{"type": "long"},
		},
	},
}

// EnsureIndex creates the index with its mapping when it does not exist.
func (x *MenuIndex) EnsureIndex(ctx context.Context) error {
	res, err := x.ES.Indices.Exists([]string{x.Index}, x.ES.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("es: index exists: %w", err)
	}
	res.Body.Close()
	if res.StatusCode == 200 {
		return nil
	}

	body, err := jsonBody(indexMapping)
	if err != nil {
		return err
	}
	res, err = x.ES.Indices.Create(x.Index,
		x.ES.Indices.Create.WithContext(ctx),
		x.ES.Indices.Create.WithBody(body),
	)
	if err != nil {
		return fmt.Errorf("es: create index: %w", err)
	}
	return checkResponse("create index", res)
}

// Reindex pushes every given menu into the index.
func (x *MenuIndex) Reindex(ctx context.Context, menus []models.Menu) error {
	for _, m := range menus {
		if err := x.Upsert(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

func (x *MenuIndex) Upsert(ctx context.Context, m models.Menu) error {
	body, err := jsonBody(docOf(m))
	if err != nil {
		return err
	}
	res, err := x.ES.Index(x.Index, body,
		x.ES.Index.WithContext(ctx),
		x.ES.Index.WithDocumentID(strconv.FormatUint(uint64(m.ID), 10)),
		x.ES.Index.WithRefresh("true"),
	)
	if err != nil {
		return fmt.Errorf("es: index menu %d: %w", m.ID, err)
	}
	return checkResponse("index menu", res)
}

func (x *MenuIndex) Delete(ctx context.Context, id uint) error {
	res, err := x.ES.Delete(x.Index, strconv.FormatUint(uint64(id), 10),
		x.ES.Delete.WithContext(ctx),
		x.ES.Delete.WithRefresh("true"),
	)
	if err != nil {
		return fmt.Errorf("es: delete menu %d: %w", id, err)
	}
	if res.StatusCode == 404 {
		res.Body.Close()
		return nil
	}
	return checkResponse("delete menu", res)
}

// SearchAvailable returns the ids of available menus whose name or
// description contains term, ignoring case, optionally within one category.
func (x *MenuIndex) SearchAvailable(ctx context.Context, term string, categoryID *uint) ([]uint, error) {
	body, err := jsonBody(searchQuery(term, categoryID))
	if err != nil {
		return nil, err
	}
	res, err := x.ES.Search(
		x.ES.Search.WithContext(ctx),
		x.ES.Search.WithIndex(x.Index),
		x.ES.Search.WithBody(body),
	)
	if err != nil {
		return nil, fmt.Errorf("es: search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		raw, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("es: search: %s: %s", res.Status(), raw)
	}

	var r struct {
		Hits struct {
			Hits []struct {
				Source menuDoc `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("es: decode search: %w", err)
	}

	ids := make([]uint, 0, len(r.Hits.Hits))
	for _, h := range r.Hits.Hits {
		ids = append(ids, h.Source.ID)
	}
	return ids, nil
}

func searchQuery(term string, categoryID *uint) map[string]any {
	pattern := "*" + escapeWildcard(strings.ToLower(strings.TrimSpace(term))) + "*"
	filter := []any{
		map[string]any{"term": map[string]any{"available": true}},
	}
	if categoryID != nil {
		filter = append(filter, map[string]any{"term": map[string]any{"category_id": *categoryID}})
	}
	return map[string]any{
		"size":    maxHits,
		"_source": []string{"id"},
		"query": map[string]any{
			"bool": map[string]any{
				"filter": filter,
				"should": []any{
					map[string]any{"wildcard": map[string]any{"name_lc": map[string]any{"value": pattern}}},
					map[string]any{"wildcard": map[string]any{"description_lc": map[string]any{"value": pattern}}},
				},
				"minimum_should_match": 1,
			},
		},
	}
}

func escapeWildcard(s string) string {
	return strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`).Replace(s)
}

func jsonBody(v any) (io.Reader, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		return nil, fmt.Errorf("es: encode body: %w", err)
	}
	return &buf, nil
}

func checkResponse(op string, res *esapi.Response) error {
	defer res.Body.Close()
	if res.IsError() {
		raw, _ := io.ReadAll(res.Body)
		return fmt.Errorf("es: %s: %s: %s", op, res.Status(), raw)
	}
	return nil
}
