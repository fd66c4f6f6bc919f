package site

import (
	"github.com/umeboshi2/kotti-jsonapi/domain/content"
)

func seedTree(opts Options) (*content.Node, []*content.Node) {
	title := opts.Title
	if title == "" {
		title = "Welcome"
	}
	root := content.NewNode(content.TypeDocument, "", title)
	root.State = "public"
	root.Description = "Congratulations! You have successfully installed the site."
	root.SetBody("<p>This is the front page.</p>")

	if !opts.Seed {
		return root, nil
	}

	about := content.NewNode(content.TypeDocument, "about", "About")
	about.State = "public"
	about.Description = "Our company is the leading manufacturer of foo widgets used in a wide variety of aviation and industrial products."
	about.SetBody("<p>Learn more about us.</p>")
	return root, []*content.Node{about}
}
