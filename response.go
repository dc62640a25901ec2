package vireo

// Raw response keys recognized by the pagination parser. The server puts the
// four link strings under a top-level "paging" object and the counters at
// the top level of the body.
const (
	pagingKey      = "paging"
	pagingNextKey  = "next"
	pagingPrevKey  = "previous"
	pagingFirstKey = "first"
	pagingLastKey  = "last"
	totalKey       = "total"
	pageKey        = "page"
	perPageKey     = "per_page"
)

// Page carries the pagination metadata of a paged response together with the
// derived sibling requests for the related pages. Links the server omitted
// (or sent as null) leave the corresponding request nil.
type Page[T any] struct {
	// TotalCount is the total number of items in the collection.
	TotalCount int
	// Number is the current page number.
	Number int
	// PerPage is the number of items per page.
	PerPage int
	// Next fetches the next page, nil on the last page.
	Next *Request[T]
	// Previous fetches the previous page, nil on the first page.
	Previous *Request[T]
	// First fetches the first page.
	First *Request[T]
	// Last fetches the last page.
	Last *Request[T]
}

// Response is the successful result of an executed request: the mapped
// model, the raw body it was mapped from, and pagination metadata when the
// body carried a paging section.
//
// Responses are plain values handed to the completion callback; they hold no
// reference back to the engine.
type Response[T any] struct {
	// Model is the mapped result.
	Model T
	// Raw is the raw JSON object as received from the network or cache.
	Raw map[string]any
	// Cached reports whether the response was served from the cache.
	Cached bool
	// Page is the pagination block, nil when the raw body had no paging
	// section. Its fields are populated together: a response is either
	// paged or it is not.
	Page *Page[T]
}

// parsePage extracts the pagination block from a raw body, deriving each
// present link into a sibling of the originating request. It returns nil
// when the body carries no paging section.
func parsePage[T any](req Request[T], raw map[string]any) *Page[T] {
	paging, ok := raw[pagingKey].(map[string]any)
	if !ok {
		return nil
	}

	page := &Page[T]{
		TotalCount: intFromRaw(raw[totalKey]),
		Number:     intFromRaw(raw[pageKey]),
		PerPage:    intFromRaw(raw[perPageKey]),
	}

	if link, ok := paging[pagingNextKey].(string); ok && link != "" {
		next := req.following(link)
		page.Next = &next
	}
	if link, ok := paging[pagingPrevKey].(string); ok && link != "" {
		prev := req.following(link)
		page.Previous = &prev
	}
	if link, ok := paging[pagingFirstKey].(string); ok && link != "" {
		first := req.following(link)
		page.First = &first
	}
	if link, ok := paging[pagingLastKey].(string); ok && link != "" {
		last := req.following(link)
		page.Last = &last
	}

	return page
}

// intFromRaw converts the numeric representations a decoded JSON body may
// carry into an int. Anything else yields zero.
func intFromRaw(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	case uint:
		return int(n)
	}
	return 0
}
