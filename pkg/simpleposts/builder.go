package simpleposts

import "fmt"

// ResourceKeys flattens the resource keys of blocks in submission order.
func ResourceKeys(blocks []ContentBlockRequest) []string {
	var keys []string
	for _, block := range blocks {
		if block.Type == ContentTypeResources {
			keys = append(keys, block.ResourceKeys...)
		}
	}
	return keys
}

// BuildContent turns submitted blocks into post content. Every block gets a
// fresh id; resources blocks embed the claimed media in the order of their
// keys.
func BuildContent(blocks []ContentBlockRequest, resources map[string]*MediaResource, ids IDGenerator) ([]PostContent, error) {
	content := make([]PostContent, 0, len(blocks))
	for i, block := range blocks {
		switch block.Type {
		case ContentTypeText:
			content = append(content, NewTextContent(ids.NewID(), block.Text))
		case ContentTypeResources:
			media := make([]MediaResource, 0, len(block.ResourceKeys))
			for _, key := range block.ResourceKeys {
				m, ok := resources[key]
				if !ok {
					return nil, fmt.Errorf("content[%d]: resource %s not claimed: %w", i, key, ErrMissingFiles)
				}
				media = append(media, *m.Clone())
			}
			content = append(content, NewResourcesContent(ids.NewID(), media))
		default:
			return nil, &ValidationError{Field: fieldIndex("content", i, "type"), Reason: "unknown content type " + string(block.Type)}
		}
	}
	return content, nil
}

// BuildPost fills post with the request fields, the claimed cover, and the
// built content. The post id and creator are left untouched.
func BuildPost(post *Post, req CreatePostRequest, files *PostFiles, ids IDGenerator) error {
	content, err := BuildContent(req.Content, files.ResourceMap(), ids)
	if err != nil {
		return err
	}
	post.Title = req.Title
	post.ShortDescription = req.ShortDescription
	post.Resource = files.CoverFile.Clone()
	post.Content = content
	return nil
}
