package consts

const (
	FileTypeImage = "image"
	FileTypeVideo = "video"
)

const (
	MimePrefixImage = "image"
	MimePrefixVideo = "video"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)
