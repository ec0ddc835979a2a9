package models

// FilesResponse is the listing returned by GET /session/{id}/se/files
type FilesResponse struct {
	Value FilesValue `json:"value"`
}

type FilesValue struct {
	Names []string `json:"names"`
}

// GetFileRequest is the body of POST /session/{id}/se/files
type GetFileRequest struct {
	Name string `json:"name"`
}

// FileResponse carries a single file as a base64-encoded zip archive
type FileResponse struct {
	Value FileValue `json:"value"`
}

type FileValue struct {
	Filename string `json:"filename"`
	Contents string `json:"contents"`
}

// DeprecatedFilesResponse is the listing returned by GET /downloads/{id}/
type DeprecatedFilesResponse struct {
	Files []DeprecatedFile `json:"files"`
}

type DeprecatedFile struct {
	Name string `json:"name"`
}
