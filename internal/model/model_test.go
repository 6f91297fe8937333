package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Hello World", "hello-world"},
		{"Hello, World!  Go -- 2024", "hello-world-go-2024"},
		{"  Leading and trailing  ", "leading-and-trailing"},
		{"Ünïcödé only", "ncd-only"},
		{"---", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.title))
		})
	}
}

func TestReadTime(t *testing.T) {
	assert.Equal(t, 1, ReadTime(""))
	assert.Equal(t, 1, ReadTime("one two three"))

	words := make([]byte, 0, 401*2)
	for i := 0; i < 401; i++ {
		words = append(words, 'w', ' ')
	}
	assert.Equal(t, 3, ReadTime(string(words)))
}

func TestParseTags(t *testing.T) {
	assert.Equal(t, []string{"Go", "Web"}, ParseTags(" Go, ,Web, go "))
	assert.Equal(t, []string{}, ParseTags(""))
}

func TestParseFeedTab(t *testing.T) {
	assert.Equal(t, TabFeatured, ParseFeedTab("Featured"))
	assert.Equal(t, TabTrending, ParseFeedTab("trending"))
	assert.Equal(t, TabPersonalized, ParseFeedTab(""))
	assert.Equal(t, TabPersonalized, ParseFeedTab("bogus"))
}

func TestProfileUpdate_ApplyTo_OnlyTouchesSuppliedFields(t *testing.T) {
	bio := "hi"
	orig := &UserProfile{
		ID:          "1",
		Username:    "johndoe",
		DisplayName: "John Doe",
		Email:       "a@b.com",
		Avatar:      "https://example.com/a.png",
		SocialLinks: SocialLinks{SocialGitHub: "johndoe"},
	}

	merged := ProfileUpdate{Bio: &bio}.ApplyTo(orig)

	assert.Equal(t, "hi", merged.Bio)
	assert.Equal(t, orig.Username, merged.Username)
	assert.Equal(t, orig.DisplayName, merged.DisplayName)
	assert.Equal(t, orig.Avatar, merged.Avatar)
	assert.Equal(t, orig.SocialLinks, merged.SocialLinks)
	assert.Empty(t, orig.Bio, "ApplyTo must not mutate its input")
}

func TestProfileUpdate_SocialLinksReplacedWhole(t *testing.T) {
	orig := &UserProfile{ID: "1", SocialLinks: SocialLinks{SocialGitHub: "old", SocialTwitter: "old"}}

	merged := ProfileUpdate{SocialLinks: SocialLinks{SocialWebsite: "https://x.dev", "myspace": "nope"}}.ApplyTo(orig)

	assert.Equal(t, SocialLinks{SocialWebsite: "https://x.dev"}, merged.SocialLinks)
}

func TestUserProfile_CloneIsDeep(t *testing.T) {
	orig := &UserProfile{ID: "1", SocialLinks: SocialLinks{SocialGitHub: "a"}}
	c := orig.Clone()
	c.SocialLinks[SocialGitHub] = "b"

	assert.Equal(t, "a", orig.SocialLinks[SocialGitHub])
	assert.Nil(t, (*UserProfile)(nil).Clone())
}

func TestProfileUpdate_IsEmpty(t *testing.T) {
	assert.True(t, ProfileUpdate{}.IsEmpty())
	s := ""
	assert.False(t, ProfileUpdate{Avatar: &s}.IsEmpty())
}
