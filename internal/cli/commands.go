package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/sakif/blognode/internal/model"
	"github.com/sakif/blognode/internal/views"
)

// flags returns a FlagSet that reports errors instead of exiting.
func (a *App) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.out)
	return fs
}

// parse treats -h as success and any other flag error as ErrUsage.
func parse(fs *flag.FlagSet, args []string) (bool, error) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return false, nil
		}
		return false, ErrUsage
	}
	return true, nil
}

func (a *App) register(ctx context.Context, args []string) error {
	fs := a.flags("register")
	email := fs.String("email", "", "account email")
	name := fs.String("name", "", "full name, shown as display name")
	if ok, err := parse(fs, args); !ok {
		return err
	}

	form := views.NewSignUpForm(a.session)
	var err error
	if form.Email, err = a.valueOrPrompt(*email, "Email"); err != nil {
		return err
	}
	form.FullName = *name
	if form.Password, err = a.promptPassword("Password"); err != nil {
		return err
	}
	if form.ConfirmPassword, err = a.promptPassword("Confirm password"); err != nil {
		return err
	}

	user, err := form.Submit(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Welcome to BlogNode, %s!\n", greetingName(user))
	return nil
}

func (a *App) login(ctx context.Context, args []string) error {
	fs := a.flags("login")
	email := fs.String("email", "", "account email")
	if ok, err := parse(fs, args); !ok {
		return err
	}

	addr, err := a.valueOrPrompt(*email, "Email")
	if err != nil {
		return err
	}
	password, err := a.promptPassword("Password")
	if err != nil {
		return err
	}

	user, err := a.session.Login(ctx, addr, password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Logged in as %s.\n", greetingName(user))
	return nil
}

func (a *App) logout(ctx context.Context, args []string) error {
	if ok, err := parse(a.flags("logout"), args); !ok {
		return err
	}

	if err := a.session.Logout(ctx); err != nil {
		return err
	}
	if a.remote != nil {
		if err := a.remote.ForgetToken(ctx); err != nil {
			return err
		}
	}
	fmt.Fprintln(a.out, "Logged out.")
	return nil
}

func (a *App) whoami(_ context.Context, args []string) error {
	if ok, err := parse(a.flags("whoami"), args); !ok {
		return err
	}

	user := a.session.CurrentUser()
	if user == nil {
		fmt.Fprintln(a.out, "Not logged in.")
		return nil
	}
	printProfile(a, user)
	return nil
}

// linkFlags are the social link keys settable from the profile command.
var linkFlags = []string{model.SocialTwitter, model.SocialGitHub, model.SocialLinkedIn, model.SocialWebsite}

func (a *App) profile(ctx context.Context, args []string) error {
	fs := a.flags("profile")
	username := fs.String("username", "", "username")
	displayName := fs.String("display-name", "", "display name")
	avatar := fs.String("avatar", "", "avatar image URL")
	bio := fs.String("bio", "", "short bio")
	clearLinks := fs.Bool("clear-links", false, "remove all social links")
	links := make(map[string]*string, len(linkFlags))
	for _, k := range linkFlags {
		links[k] = fs.String(k, "", k+" handle or URL (empty removes it)")
	}
	if ok, err := parse(fs, args); !ok {
		return err
	}

	current := a.session.CurrentUser()

	var (
		upd          model.ProfileUpdate
		linksChanged bool
	)
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "username":
			upd.Username = username
		case "display-name":
			upd.DisplayName = displayName
		case "avatar":
			upd.Avatar = avatar
		case "bio":
			upd.Bio = bio
		case "clear-links":
			linksChanged = true
		default:
			if _, ok := links[f.Name]; ok {
				linksChanged = true
			}
		}
	})

	if linksChanged && current != nil {
		// Links are replaced as a whole, so start from what the profile has.
		next := model.SocialLinks{}
		if !*clearLinks {
			for k, v := range current.SocialLinks {
				next[k] = v
			}
		}
		fs.Visit(func(f *flag.Flag) {
			if p, ok := links[f.Name]; ok {
				next[f.Name] = *p
			}
		})
		upd.SocialLinks = next
	}

	if upd.IsEmpty() && !linksChanged {
		fmt.Fprintln(a.out, "Nothing to update.")
		return nil
	}

	user, err := a.session.UpdateProfile(ctx, upd)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Profile updated.")
	printProfile(a, user)
	return nil
}

func (a *App) post(ctx context.Context, args []string) error {
	fs := a.flags("post")
	title := fs.String("title", "", "post title")
	slug := fs.String("slug", "", "URL slug (derived from the title when empty)")
	content := fs.String("content", "", "post body")
	contentFile := fs.String("content-file", "", "read the post body from this file")
	excerpt := fs.String("excerpt", "", "short summary")
	image := fs.String("image", "", "featured image URL")
	tags := fs.String("tags", "", "comma separated tags")
	draft := fs.Bool("draft", false, "save as a draft instead of publishing")
	if ok, err := parse(fs, args); !ok {
		return err
	}

	editor := views.NewPostEditor(a.posts, a.session)
	editor.SetTitle(*title)
	if *slug != "" {
		editor.Slug = model.Slugify(*slug)
	}
	editor.Content = *content
	if *contentFile != "" {
		body, err := os.ReadFile(*contentFile)
		if err != nil {
			return fmt.Errorf("reading content: %w", err)
		}
		editor.Content = string(body)
	}
	editor.Excerpt = *excerpt
	editor.FeaturedImage = *image
	editor.Tags = *tags

	if *draft {
		post, err := editor.SaveDraft(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Draft saved: %s (id %s)\n", post.Slug, post.ID)
		return nil
	}

	post, err := editor.Publish(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Published: %s (%d min read)\n", post.Slug, post.ReadTime)
	return nil
}

func (a *App) feed(ctx context.Context, args []string) error {
	fs := a.flags("feed")
	tab := fs.String("tab", string(model.TabPersonalized), "personalized, featured or trending")
	if ok, err := parse(fs, args); !ok {
		return err
	}

	page := views.NewCommunityFeed(a.posts)
	page.SetTab(*tab)
	items, err := page.Load(ctx)
	if err != nil {
		return err
	}

	if len(items) == 0 {
		fmt.Fprintln(a.out, "No posts yet.")
		return nil
	}

	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TITLE\tAUTHOR\tPUBLISHED\tREAD\tVIEWS\tLIKES\tSLUG")
	for _, it := range items {
		published := "-"
		if it.PublishedAt != nil {
			published = it.PublishedAt.Format("2006-01-02")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d min\t%d\t%d\t%s\n",
			it.Title, authorName(it.Author), published, it.ReadTime, it.Stats.Views, it.Stats.Likes, it.Slug)
	}
	return w.Flush()
}

func printProfile(a *App, u *model.UserProfile) {
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "ID:\t%s\n", u.ID)
	fmt.Fprintf(w, "Email:\t%s\n", u.Email)
	fmt.Fprintf(w, "Username:\t%s\n", u.Username)
	fmt.Fprintf(w, "Display name:\t%s\n", u.DisplayName)
	if u.Avatar != "" {
		fmt.Fprintf(w, "Avatar:\t%s\n", u.Avatar)
	}
	if u.Bio != "" {
		fmt.Fprintf(w, "Bio:\t%s\n", u.Bio)
	}

	keys := make([]string, 0, len(u.SocialLinks))
	for k := range u.SocialLinks {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "%s:\t%s\n", strings.ToUpper(k[:1])+k[1:], u.SocialLinks[k])
	}
	w.Flush()
}

func greetingName(u *model.UserProfile) string {
	switch {
	case u.DisplayName != "":
		return u.DisplayName
	case u.Username != "":
		return u.Username
	default:
		return u.Email
	}
}

func authorName(au model.Author) string {
	if au.DisplayName != "" {
		return au.DisplayName
	}
	return "@" + au.Username
}
