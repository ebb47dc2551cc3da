package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, entry, team, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeDuplicateBook      = "DUPLICATE_BOOK"
	ErrCodeEntryNotFound      = "ENTRY_NOT_FOUND"
	ErrCodeTeamNotFound       = "TEAM_NOT_FOUND"
	ErrCodeTeamExists         = "TEAM_EXISTS"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeRateLimited        = "RATE_LIMITED"
	ErrCodeTransportFailure   = "TRANSPORT_FAILURE"
	ErrCodeInternal           = "INTERNAL_ERROR"
)

// NewValidationError は入力検証エラーを生成する。
func NewValidationError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  message,
		Category: "validation",
		Action:   "Check the highlighted fields and submit again.",
	}
}

// NewDuplicateBookError は同一チームで同じ本が既に記録されている場合のエラーを生成する。
func NewDuplicateBookError() *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateBook,
		Message:  "Duplicate Record, Book Already logged",
		Category: "entry",
		Action:   "This book is already logged for your team.",
	}
}

// NewEntryNotFoundError は記録未検出エラーを生成する。
func NewEntryNotFoundError(id int64) *APIError {
	return &APIError{
		Code:     ErrCodeEntryNotFound,
		Message:  fmt.Sprintf("Entry not found: %d", id),
		Category: "entry",
		Action:   "Reload the entry list and try again.",
	}
}

// NewTeamNotFoundError はチーム未検出エラーを生成する。
func NewTeamNotFoundError(name string) *APIError {
	return &APIError{
		Code:     ErrCodeTeamNotFound,
		Message:  fmt.Sprintf("Team not found: %s", name),
		Category: "team",
		Action:   "Reload the team list and try again.",
	}
}

// NewTeamExistsError はチーム名の重複エラーを生成する。
func NewTeamExistsError(name string) *APIError {
	return &APIError{
		Code:     ErrCodeTeamExists,
		Message:  fmt.Sprintf("Team name already exists: %s", name),
		Category: "team",
		Action:   "Choose a different team name.",
	}
}

// NewUnauthorizedError はトークンが無い・無効・期限切れの場合のエラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "Unauthorized. Please login first.",
		Category: "auth",
		Action:   "Log in as admin and retry.",
	}
}

// NewInvalidCredentialsError はログイン失敗エラーを生成する。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "Invalid credentials",
		Category: "auth",
		Action:   "Check the admin username and password.",
	}
}

// NewTransportFailureError はバックエンドに到達できない場合のエラーを生成する。
// クライアント側でのみ使用する。
func NewTransportFailureError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeTransportFailure,
		Message:  fmt.Sprintf("Backend unavailable: %s", reason),
		Category: "system",
		Action:   "Entries are kept locally until the backend is reachable.",
	}
}

// NewInternalError は内部エラーを生成する。詳細はログにのみ記録する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "Internal server error",
		Category: "system",
		Action:   "Please wait and try again.",
	}
}
