package service

import (
	"errors"
	"fmt"
)

// ErrorKind 业务错误分类
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindValidation
	KindNotFound
	KindNotAuthorized
	KindPartnerUnavailable
	KindInvalidToken
	KindAlreadyExists
	KindUnauthenticated
)

// ErrorKinds 返回全部业务错误分类（不含 KindInternal）
func ErrorKinds() []ErrorKind {
	return []ErrorKind{
		KindValidation,
		KindNotFound,
		KindNotAuthorized,
		KindPartnerUnavailable,
		KindInvalidToken,
		KindAlreadyExists,
		KindUnauthenticated,
	}
}

// String 返回分类名称
func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation_error"
	case KindNotFound:
		return "not_found"
	case KindNotAuthorized:
		return "not_authorized"
	case KindPartnerUnavailable:
		return "partner_unavailable"
	case KindInvalidToken:
		return "invalid_token"
	case KindAlreadyExists:
		return "already_exists"
	case KindUnauthenticated:
		return "unauthenticated"
	default:
		return "internal"
	}
}

// Error 带分类的业务错误
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// KindOf 提取错误分类，非业务错误返回 KindInternal
func KindOf(err error) ErrorKind {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Kind
	}
	return KindInternal
}

var (
	ErrInvalidWeight            = newError(KindValidation, "weight must be greater than 0 and at most the maximum allowed")
	ErrDestinationRequired      = newError(KindValidation, "destination zip code is required")
	ErrClientEmailRequired      = newError(KindValidation, "client contact email is required")
	ErrInvalidClientEmail       = newError(KindValidation, "client contact email is invalid")
	ErrContentRequired          = newError(KindValidation, "content is required")
	ErrShipmentTerminal         = newError(KindValidation, "cannot modify a terminal shipment")
	ErrInvalidTransition        = newError(KindValidation, "status transition not allowed")
	ErrInvalidStatus            = newError(KindValidation, "unknown shipment status")
	ErrVerificationCodeRequired = newError(KindValidation, "verification code is required to mark delivered")
	ErrInvalidTag               = newError(KindValidation, "unknown tag")
	ErrInvalidRating            = newError(KindValidation, "rating must be between 1 and 5")
	ErrInvalidCapacity          = newError(KindValidation, "max handling capacity must be positive")
	ErrInvalidZipCode           = newError(KindValidation, "zip code must be positive")
	ErrWeakPassword             = newError(KindValidation, "password is too short")
	ErrNameRequired             = newError(KindValidation, "name is required")
	ErrInvalidAccountEmail      = newError(KindValidation, "email is invalid")

	ErrInvalidVerificationCode = newError(KindInvalidToken, "verification code is invalid or expired")
	ErrInvalidReviewToken      = newError(KindInvalidToken, "review token is invalid or expired")
	ErrInvalidVerifyToken      = newError(KindInvalidToken, "verification token is invalid or expired")

	ErrShipmentNotFound = newError(KindNotFound, "shipment not found")
	ErrPartnerNotFound  = newError(KindNotFound, "delivery partner not found")
	ErrSellerNotFound   = newError(KindNotFound, "seller not found")
	ErrTagNotOnShipment = newError(KindNotFound, "tag not present on shipment")

	ErrNotShipmentOwner   = newError(KindNotAuthorized, "only the owning seller may perform this action")
	ErrNotAssignedPartner = newError(KindNotAuthorized, "only the assigned delivery partner may update this shipment")

	ErrPartnerUnavailable = newError(KindPartnerUnavailable, "no delivery partner available for destination")

	ErrTagAlreadyAdded        = newError(KindAlreadyExists, "tag already added to shipment")
	ErrReviewAlreadyExists    = newError(KindAlreadyExists, "review already submitted for shipment")
	ErrEmailAlreadyRegistered = newError(KindAlreadyExists, "email already registered")

	ErrInvalidCredentials = newError(KindUnauthenticated, "invalid email or password")
)

func terminalError(status string) error {
	return fmt.Errorf("%w: shipment is %s", ErrShipmentTerminal, status)
}
