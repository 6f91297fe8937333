package views

import (
	"context"
	"fmt"
	"sync"

	"github.com/sakif/blognode/internal/model"
)

// FeedPageSize is how many items one Load fetches.
const FeedPageSize = 20

// FeedSource lists the community feed. *client.Client and *identity.MockPosts
// satisfy it.
type FeedSource interface {
	Feed(ctx context.Context, tab model.FeedTab, limit, offset int) ([]model.FeedItem, error)
}

// CommunityFeed is the community page: one active tab and the items loaded for it.
type CommunityFeed struct {
	source FeedSource

	mu    sync.Mutex
	tab   model.FeedTab
	items []model.FeedItem
}

func NewCommunityFeed(source FeedSource) *CommunityFeed {
	return &CommunityFeed{source: source, tab: model.TabPersonalized}
}

func (f *CommunityFeed) ActiveTab() model.FeedTab {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tab
}

// Items returns the items loaded for the active tab.
func (f *CommunityFeed) Items() []model.FeedItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.FeedItem, len(f.items))
	copy(out, f.items)
	return out
}

// SetTab switches tabs. Unknown names fall back to personalized. Items loaded
// for the previous tab are dropped.
func (f *CommunityFeed) SetTab(name string) model.FeedTab {
	tab := model.ParseFeedTab(name)

	f.mu.Lock()
	defer f.mu.Unlock()
	if tab != f.tab {
		f.tab = tab
		f.items = nil
	}
	return tab
}

// Load fetches the first page of the active tab, replacing what was loaded.
func (f *CommunityFeed) Load(ctx context.Context) ([]model.FeedItem, error) {
	tab := f.ActiveTab()

	items, err := f.source.Feed(ctx, tab, FeedPageSize, 0)
	if err != nil {
		return nil, fmt.Errorf("views: loading %s feed: %w", tab, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	// The tab may have changed while we were waiting.
	if f.tab == tab {
		f.items = items
	}
	return items, nil
}

// LoadMore appends the next page of the active tab and returns only the new items.
func (f *CommunityFeed) LoadMore(ctx context.Context) ([]model.FeedItem, error) {
	f.mu.Lock()
	tab, offset := f.tab, len(f.items)
	f.mu.Unlock()

	items, err := f.source.Feed(ctx, tab, FeedPageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("views: loading more of %s feed: %w", tab, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tab == tab && len(f.items) == offset {
		f.items = append(f.items, items...)
	}
	return items, nil
}
