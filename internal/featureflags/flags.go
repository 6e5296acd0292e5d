package featureflags

import "yatube/internal/models"

// PostImageThumbnails stores a resized WebP copy next to every uploaded post image.
const PostImageThumbnails = "post_image_thumbnails"

// EnabledFor evaluates name for a viewer. Anonymous viewers only see fully enabled flags.
func (m *Manager) EnabledFor(name string, viewer models.Viewer) bool {
	id, _ := viewer.UserID()
	return m.Enabled(name, id)
}
