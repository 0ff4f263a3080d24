package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"veracity/internal/inputprocessor"
	"veracity/internal/verification"
)

// submissionFlags are shared by verify and enqueue.
type submissionFlags struct {
	content    string
	platform   string
	url        string
	author     string
	profileURL string
	verified   bool
	likes      int
	shares     int
	comments   int
	reach      int
	fetch      bool
}

func (f *submissionFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.content, "content", "", "Post text, or @path to read it from a file (positional args also work)")
	fl.StringVar(&f.platform, "platform", "", "Platform the post was seen on (twitter, x, instagram, facebook, youtube, tiktok, reddit, ...)")
	fl.StringVar(&f.url, "url", "", "Original post URL")
	fl.StringVar(&f.author, "author", "", "Author username")
	fl.StringVar(&f.profileURL, "profile-url", "", "Author profile URL")
	fl.BoolVar(&f.verified, "verified", false, "Author is verified on the platform")
	fl.IntVar(&f.likes, "likes", 0, "Reported like count")
	fl.IntVar(&f.shares, "shares", 0, "Reported share count")
	fl.IntVar(&f.comments, "comments", 0, "Reported comment count")
	fl.IntVar(&f.reach, "reach", 0, "Reported reach")
	fl.BoolVar(&f.fetch, "fetch", false, "Fetch page metadata from --url")
}

// build assembles a submission. Positional args take over when --content is
// not set.
func (f *submissionFlags) build(ctx context.Context, proc inputprocessor.Processor, args []string) (verification.Submission, error) {
	content := f.content
	if content == "" {
		content = strings.Join(args, " ")
	}
	if strings.TrimSpace(content) == "" {
		return verification.Submission{}, fmt.Errorf("no content given: %w", verification.ErrInvalidSubmission)
	}
	in, err := proc.Process(ctx, content)
	if err != nil {
		return verification.Submission{}, fmt.Errorf("failed to process content: %w", err)
	}

	return verification.Submission{
		Content:     in.Body,
		Platform:    f.platform,
		OriginalURL: f.url,
		Author: verification.Author{
			Username:   f.author,
			ProfileURL: f.profileURL,
			Verified:   f.verified,
		},
		Engagement: verification.Engagement{
			Likes:    f.likes,
			Shares:   f.shares,
			Comments: f.comments,
			Reach:    f.reach,
		},
	}, nil
}
