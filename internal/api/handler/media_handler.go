package handler

import (
	"Capstone/internal/api/config"
	"Capstone/internal/api/dto"
	"Capstone/internal/api/middleware"
	"Capstone/internal/model"
	"Capstone/internal/pkg/filecheck"
	"Capstone/internal/pkg/response"
	"Capstone/internal/service"
	"io"
	log "log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/copier"
)

type MediaHandler struct {
	mediaSvc  service.MediaService
	validator *filecheck.Validator
}

func NewMediaHandler(mediaSvc service.MediaService, validator *filecheck.Validator) *MediaHandler {
	return &MediaHandler{
		mediaSvc:  mediaSvc,
		validator: validator,
	}
}

func toAssetDTO(asset *model.MediaAsset) *dto.MediaAssetDTO {
	out := &dto.MediaAssetDTO{}
	if err := copier.Copy(out, asset); err != nil {
		log.Error("failed to map asset to dto", "assetID", asset.ID, "err", err)
	}
	return out
}

// Upload 接收 multipart 上传并走准入流水线
func (s *MediaHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	reader, err := file.Open()
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	defer func() { _ = reader.Close() }()

	content, err := io.ReadAll(reader)
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	result, err := s.mediaSvc.Upload(c.Request.Context(), &service.UploadRequest{
		Content:       content,
		FileName:      file.Filename,
		AccountID:     middleware.GetAccountID(c),
		UploaderIP:    c.ClientIP(),
		UploadSession: c.GetHeader("X-Upload-Session"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.UploadResultDTO{
		Asset:        toAssetDTO(result.Asset),
		Deduplicated: result.Deduplicated,
	})
}

func (s *MediaHandler) Get(c *gin.Context) {
	asset, err := s.mediaSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, toAssetDTO(asset))
}

// Download 返回原始字节流，已清理的资产返回 Gone
func (s *MediaHandler) Download(c *gin.Context) {
	content, mime, err := s.mediaSvc.Download(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Data(http.StatusOK, mime, content)
}

func (s *MediaHandler) Associate(c *gin.Context) {
	var req dto.AssociateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, err)
		return
	}

	asset, err := s.mediaSvc.Associate(c.Request.Context(), c.Param("id"), req.GroupID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, toAssetDTO(asset))
}

func (s *MediaHandler) Delete(c *gin.Context) {
	err := s.mediaSvc.Delete(c.Request.Context(), c.Param("id"), middleware.GetAccountID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

func (s *MediaHandler) List(c *gin.Context) {
	var query dto.ListMediaQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, err)
		return
	}

	result, err := s.mediaSvc.List(c.Request.Context(),
		middleware.GetAccountID(c), query.Filter, query.Page, query.PageSize)
	if err != nil {
		response.Error(c, err)
		return
	}

	list := make([]*dto.MediaAssetDTO, 0, len(result.Assets))
	for _, asset := range result.Assets {
		list = append(list, toAssetDTO(asset))
	}

	response.Success(c, gin.H{
		"list":      list,
		"total":     result.Total,
		"page":      query.Page,
		"page_size": query.PageSize,
		"summary":   result.Summary,
	})
}

func (s *MediaHandler) MarkPermanent(c *gin.Context) {
	asset, err := s.mediaSvc.MarkPermanent(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, toAssetDTO(asset))
}

// Revalidate 按需重新触发校验链
func (s *MediaHandler) Revalidate(c *gin.Context) {
	asset, err := s.mediaSvc.Revalidate(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, toAssetDTO(asset))
}

// Config 上传限制的自描述接口
func (s *MediaHandler) Config(c *gin.Context) {
	cfg := config.Cfg
	response.Success(c, dto.UploadConfigDTO{
		AllowedExtensions: s.validator.AllowedExtensions(),
		MaxImageSize:      cfg.Upload.MaxImageSize,
		MaxVideoSize:      cfg.Upload.MaxVideoSize,
		HashAlgorithm:     cfg.Upload.HashAlgorithm,
		ScanEnabled:       cfg.Security.ScanEnabled,
	})
}
