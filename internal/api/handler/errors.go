package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"my-page/backend/internal/lock"
	"my-page/backend/internal/service"
	pkgerrors "my-page/backend/pkg/errors"
	"my-page/backend/pkg/response"
)

// ── 业务错误码 ──
//
//	200xx 资源不存在
//	201xx 状态冲突
//	202xx 参数与引用
//	203xx 权限
//	204xx 导入导出
const (
	codeDrawingNotFound   = 20001
	codePeriodNotFound    = 20002
	codeWishNotFound      = 20003
	codeExecutionNotFound = 20004
	codeApartmentNotFound = 20005
	codeNotPublished      = 20006

	codeStateTransition     = 20101
	codePublicationConflict = 20102
	codeOptimisticLock      = 20103
	codeDrawingBusy         = 20104

	codeValidation = 20201
	codeReference  = 20202

	codeForbidden = 20301

	codeImportInvalid = 20401
	codeExportFailed  = 20402
)

// handleServiceError 统一处理抽签引擎的业务错误
// 错误消息直接取自 err.Error()，未识别的错误返回 500
func handleServiceError(c *gin.Context, err error) {
	var (
		stateErr      *pkgerrors.StateTransitionError
		conflictErr   *pkgerrors.PublicationConflictError
		validationErr *pkgerrors.ValidationError
		referenceErr  *pkgerrors.ReferenceError
	)

	switch {
	case errors.As(err, &stateErr):
		response.Conflict(c, codeStateTransition, err.Error())
	case errors.As(err, &conflictErr):
		response.Conflict(c, codePublicationConflict, err.Error())
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, codeOptimisticLock, err.Error())
	case errors.Is(err, lock.ErrLockTimeout):
		response.Conflict(c, codeDrawingBusy, lock.ErrLockTimeout.Error())
	case errors.As(err, &validationErr):
		response.ErrorWithDetails(c, http.StatusBadRequest, codeValidation, err.Error(), validationErr.Field)
	case errors.As(err, &referenceErr):
		response.UnprocessableEntity(c, codeReference, err.Error())

	case errors.Is(err, service.ErrDrawingNotFound):
		response.NotFound(c, codeDrawingNotFound, err.Error())
	case errors.Is(err, service.ErrPeriodNotFound):
		response.NotFound(c, codePeriodNotFound, err.Error())
	case errors.Is(err, service.ErrWishNotFound):
		response.NotFound(c, codeWishNotFound, err.Error())
	case errors.Is(err, service.ErrExecutionNotFound):
		response.NotFound(c, codeExecutionNotFound, err.Error())
	case errors.Is(err, service.ErrApartmentNotFound):
		response.NotFound(c, codeApartmentNotFound, err.Error())
	case errors.Is(err, service.ErrNotPublished):
		response.NotFound(c, codeNotPublished, err.Error())

	case errors.Is(err, service.ErrForbidden):
		response.Forbidden(c, codeForbidden, err.Error())

	case errors.Is(err, service.ErrImportNoData),
		errors.Is(err, service.ErrImportBadHeader),
		errors.Is(err, service.ErrImportUnsupported),
		errors.Is(err, service.ErrImportTooManyRows):
		response.BadRequest(c, codeImportInvalid, err.Error())
	case errors.Is(err, service.ErrExportGenerateFail):
		response.Error(c, http.StatusInternalServerError, codeExportFailed, err.Error())

	default:
		response.InternalError(c)
	}
}
