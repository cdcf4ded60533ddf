package routes

import (
	"time"

	"github.com/any-hub/cmis-hub/internal/cmis"
)

type objectPayload struct {
	ID                   string          `json:"id"`
	Name                 string          `json:"name"`
	Kind                 cmis.Kind       `json:"kind"`
	CreatedBy            string          `json:"created_by,omitempty"`
	LastModifiedBy       string          `json:"last_modified_by,omitempty"`
	CreationDate         *time.Time      `json:"creation_date,omitempty"`
	LastModificationDate *time.Time      `json:"last_modification_date,omitempty"`
	ParentID             string          `json:"parent_id,omitempty"`
	Path                 string          `json:"path,omitempty"`
	Content              *contentPayload `json:"content,omitempty"`
	Properties           cmis.Properties `json:"properties"`
}

type contentPayload struct {
	Length          *int64 `json:"length,omitempty"`
	MimeType        string `json:"mime_type,omitempty"`
	FileName        string `json:"file_name,omitempty"`
	VersionSeriesID string `json:"version_series_id,omitempty"`
}

type listPayload struct {
	ID      string          `json:"id"`
	Count   int             `json:"count"`
	Objects []objectPayload `json:"objects"`
}

func encodeObject(obj cmis.Object) objectPayload {
	payload := objectPayload{
		ID:         obj.ID(),
		Name:       obj.Name(),
		Kind:       obj.Kind(),
		Properties: obj.Properties(),
	}
	payload.CreatedBy, _ = obj.CreatedBy()
	payload.LastModifiedBy, _ = obj.LastModifiedBy()
	if ts, ok := obj.CreationDate(); ok {
		payload.CreationDate = &ts
	}
	if ts, ok := obj.LastModificationDate(); ok {
		payload.LastModificationDate = &ts
	}

	switch v := obj.(type) {
	case *cmis.Folder:
		payload.ParentID, _ = v.ParentID()
		payload.Path, _ = v.Path()
	case *cmis.Document:
		content := &contentPayload{}
		if n, ok := v.ContentStreamLength(); ok {
			content.Length = &n
		}
		content.MimeType, _ = v.ContentStreamMimeType()
		content.FileName, _ = v.ContentStreamFileName()
		content.VersionSeriesID, _ = v.VersionSeriesID()
		payload.Content = content
	}
	return payload
}

func encodeObjects(id string, objects []cmis.Object) listPayload {
	result := listPayload{ID: id, Count: len(objects), Objects: make([]objectPayload, 0, len(objects))}
	for _, obj := range objects {
		result.Objects = append(result.Objects, encodeObject(obj))
	}
	return result
}

func encodeFolders(id string, folders []*cmis.Folder) listPayload {
	objects := make([]cmis.Object, 0, len(folders))
	for _, folder := range folders {
		objects = append(objects, folder)
	}
	return encodeObjects(id, objects)
}
