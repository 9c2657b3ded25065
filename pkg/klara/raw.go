package klara

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/shopspring/decimal"
)

// flexString accepts a JSON string or number. KLARA ids have been observed as both.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("flexString: %w", err)
	}
	*f = flexString(n.String())
	return nil
}

type rawPricePeriod struct {
	Price decimal.NullDecimal `json:"price"`
}

type rawCategoryRef struct {
	ID flexString `json:"id"`
}

type rawArticle struct {
	ID            flexString       `json:"id"`
	ArticleNumber flexString       `json:"articleNumber"`
	Number        flexString       `json:"number"`
	NameDE        string           `json:"nameDE"`
	NameEN        string           `json:"nameEN"`
	Name          string           `json:"name"`
	DescriptionDE string           `json:"descriptionDE"`
	DescriptionEN string           `json:"descriptionEN"`
	Description   string           `json:"description"`
	PricePeriods  []rawPricePeriod `json:"pricePeriods"`
	Categories    []rawCategoryRef `json:"categories"`
}

type rawCategory struct {
	ID     flexString   `json:"id"`
	NameDE string       `json:"nameDE"`
	NameEN string       `json:"nameEN"`
	Name   string       `json:"name"`
	Order  *json.Number `json:"order"`
}

// orderValue parses the optional order field. ok is false when absent,
// unparsable or outside the int32 range.
func (c rawCategory) orderValue() (int, bool) {
	if c.Order == nil || c.Order.String() == "" {
		return 0, false
	}
	if i, err := c.Order.Int64(); err == nil {
		if i < math.MinInt32 || i > math.MaxInt32 {
			return 0, false
		}
		return int(i), true
	}
	f, err := strconv.ParseFloat(c.Order.String(), 64)
	if err != nil || math.IsNaN(f) || f < math.MinInt32 || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

// decodeList extracts the record list from a response body. KLARA returns a
// bare array for most endpoints, but some deployments wrap it in an object.
func decodeList(body []byte, wrapperKeys ...string) ([]json.RawMessage, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, fmt.Errorf("empty response body")
	}

	switch body[0] {
	case '[':
		var list []json.RawMessage
		if err := json.Unmarshal(body, &list); err != nil {
			return nil, fmt.Errorf("decode list: %w", err)
		}
		return list, nil
	case '{':
		var wrapper map[string]json.RawMessage
		if err := json.Unmarshal(body, &wrapper); err != nil {
			return nil, fmt.Errorf("decode wrapper: %w", err)
		}
		for _, key := range append(wrapperKeys, "data", "items") {
			inner, ok := wrapper[key]
			if !ok {
				continue
			}
			var list []json.RawMessage
			if err := json.Unmarshal(inner, &list); err != nil {
				return nil, fmt.Errorf("decode %q: %w", key, err)
			}
			return list, nil
		}
		return nil, fmt.Errorf("no record list found in response object")
	default:
		return nil, fmt.Errorf("unexpected response shape")
	}
}
