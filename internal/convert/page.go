package convert

import (
	"encoding/json"

	"github.com/and161185/libdesk/internal/model"
	"github.com/tidwall/gjson"
)

// decodePage accepts {content, pageInfo:{...}}, Spring's flat
// {content, number, size, totalElements, totalPages} and Spring's
// {content, page:{...}} layouts.
func decodePage[D any, M any](raw json.RawMessage, conv func(D) (M, error)) (model.Page[M], error) {
	root := gjson.ParseBytes(raw)
	if !root.IsObject() {
		return model.Page[M]{}, malformed("page: not an object")
	}
	content := root.Get("content")
	if !content.IsArray() {
		return model.Page[M]{}, malformed("page: content is not an array")
	}

	var ds []D
	if err := json.Unmarshal([]byte(content.Raw), &ds); err != nil {
		return model.Page[M]{}, malformed("page content: %v", err)
	}
	items := make([]M, 0, len(ds))
	for _, d := range ds {
		m, err := conv(d)
		if err != nil {
			return model.Page[M]{}, err
		}
		items = append(items, m)
	}

	meta := root
	switch {
	case root.Get("pageInfo").IsObject():
		meta = root.Get("pageInfo")
	case root.Get("page").IsObject():
		meta = root.Get("page")
	}
	info := model.PageInfo{
		Page:          int(pick(meta, "page", "pageNumber", "number").Int()),
		Size:          int(pick(meta, "size", "pageSize").Int()),
		TotalElements: pick(meta, "totalElements", "total").Int(),
		TotalPages:    int(pick(meta, "totalPages").Int()),
	}
	if info.Page < 0 || info.TotalPages < 0 || info.TotalElements < 0 {
		return model.Page[M]{}, malformed("page: negative counters")
	}
	return model.Page[M]{Content: items, Info: info}, nil
}

func pick(r gjson.Result, keys ...string) gjson.Result {
	for _, k := range keys {
		if v := r.Get(k); v.Type == gjson.Number {
			return v
		}
	}
	return gjson.Result{}
}
