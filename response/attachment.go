package response

type AttachmentResponse struct {
	ID       uint   `json:"id"`
	FileName string `json:"file_name"`
	Mimetype string `json:"mimetype"`
	FileSize int64  `json:"file_size"`
	URL      string `json:"url"`
}

type GetAttachmentsResponse struct {
	Attachments []AttachmentResponse `json:"attachments"`
}
