package models

import (
	"errors"
	"fmt"
)

// ErrorCategory groups raffle errors by what went wrong
type ErrorCategory string

const (
	CategoryValidation    ErrorCategory = "validation"
	CategoryArithmetic    ErrorCategory = "arithmetic"
	CategoryState         ErrorCategory = "state"
	CategoryAuthorization ErrorCategory = "authorization"
)

// RaffleError is a raffle program failure with a stable numeric code.
// Sentinels are compared with errors.Is and survive %w wrapping.
type RaffleError struct {
	Code     int
	Name     string
	Message  string
	Category ErrorCategory
	// Fatal marks failures that indicate a broken trusted collaborator rather than bad user input
	Fatal bool
}

func (e *RaffleError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Name, e.Code, e.Message)
}

func newError(code int, name string, category ErrorCategory, message string) *RaffleError {
	return &RaffleError{Code: code, Name: name, Message: message, Category: category}
}

var (
	ErrUnauthorized               = newError(6000, "Unauthorized", CategoryAuthorization, "signer is not allowed to perform this action")
	ErrTokenNotUnique             = newError(6001, "TokenNotUnique", CategoryValidation, "asset must have a supply of one and no decimals")
	ErrRaffleTooLong              = newError(6002, "RaffleTooLong", CategoryValidation, "raffle duration exceeds the maximum")
	ErrInvalidDuration            = newError(6003, "InvalidDuration", CategoryValidation, "raffle duration must be positive")
	ErrInvalidStartTime           = newError(6004, "InvalidStartTime", CategoryValidation, "start time cannot be in the past")
	ErrSoldOut                    = newError(6005, "SoldOut", CategoryValidation, "raffle has no tickets left")
	ErrNotStarted                 = newError(6006, "NotStarted", CategoryValidation, "raffle has not started")
	ErrEnded                      = newError(6007, "Ended", CategoryValidation, "raffle has ended")
	ErrAddOverflow                = newError(6008, "AddOverflow", CategoryArithmetic, "addition overflowed")
	ErrSubOverflow                = newError(6009, "SubOverflow", CategoryArithmetic, "subtraction underflowed")
	ErrMulOverflow                = newError(6010, "MulOverflow", CategoryArithmetic, "multiplication overflowed")
	ErrInvalidTokenMint           = newError(6011, "InvalidTokenMint", CategoryValidation, "payment asset does not match the raffle")
	ErrAdminOnly                  = newError(6012, "AdminOnly", CategoryAuthorization, "only the protocol authority can perform this action")
	ErrWinnerAlreadyDrawn         = newError(6013, "WinnerAlreadyDrawn", CategoryState, "randomness has already been set")
	ErrWinnerNotDrawn             = newError(6014, "WinnerNotDrawn", CategoryState, "winner has not been drawn")
	ErrOnlyAdminCanClaim          = newError(6015, "OnlyAdminCanClaim", CategoryAuthorization, "raffle had no entrants so only the sponsor authority can claim")
	ErrNotWinner                  = newError(6016, "NotWinner", CategoryAuthorization, "claimant does not hold the winning ticket")
	ErrTicketNotWinner            = newError(6017, "TicketNotWinner", CategoryState, "ticket is not the winning ticket")
	ErrAlreadyClaimed             = newError(6018, "AlreadyClaimed", CategoryState, "prize has already been claimed")
	ErrInvalidCollection          = newError(6019, "InvalidCollection", CategoryValidation, "asset is not a verified member of the required collection")
	ErrOnlyWinnerOrAdminCanSettle = newError(6020, "OnlyWinnerOrAdminCanSettle", CategoryAuthorization, "only the winner or the sponsor authority can settle")
	ErrUniqueAssetInstruction     = newError(6021, "UniqueAssetInstruction", CategoryValidation, "raffle is paid with unique assets")
	ErrTokenInstruction           = newError(6022, "TokenInstruction", CategoryValidation, "raffle is paid with a fungible token")
	ErrRaffleNotEnded             = newError(6023, "RaffleNotEnded", CategoryState, "raffle has not ended")
	ErrNotDrawn                   = newError(6024, "NotDrawn", CategoryState, "raffle has not been drawn")
	ErrGatedRaffle                = newError(6025, "GatedRaffle", CategoryValidation, "raffle requires holding an asset from the gating collection")
	ErrTicketPriceRequired        = newError(6026, "TicketPriceRequired", CategoryValidation, "token raffles need a ticket price")
	ErrUnexpectedTicketPrice      = newError(6027, "UnexpectedTicketPrice", CategoryValidation, "unique asset raffles cannot have a ticket price")
	ErrInvalidInstruction         = newError(6028, "InvalidInstruction", CategoryValidation, "entry policy does not allow this purchase")
	ErrCannotBurnNative           = newError(6029, "CannotBurnNative", CategoryValidation, "native asset cannot be burned")
	ErrURIRequired                = newError(6030, "URIRequired", CategoryValidation, "a distribution log uri is required")
	ErrURITooLong                 = newError(6031, "URITooLong", CategoryValidation, "distribution log uri is too long")
	ErrInvalidFeeShare            = newError(6032, "InvalidFeeShare", CategoryValidation, "fee share must be between 0 and 10000 basis points")
	ErrInvalidMaxEntrantPct       = newError(6033, "InvalidMaxEntrantPct", CategoryValidation, "max entrant share must be between 0 and 10000 basis points")
	ErrInvalidAmount              = newError(6034, "InvalidAmount", CategoryValidation, "ticket amount must be positive")
	ErrInsufficientFunds          = newError(6035, "InsufficientFunds", CategoryValidation, "insufficient balance")
	ErrRaffleNotFound             = newError(6036, "RaffleNotFound", CategoryValidation, "raffle does not exist")
	ErrRaffleStillExists          = newError(6037, "RaffleStillExists", CategoryState, "raffle must be deleted before its escrow can be recovered")
	ErrRandomnessPending          = newError(6038, "RandomnessPending", CategoryState, "a randomness request is already pending")
	ErrRandomnessRequestNotFound  = newError(6039, "RandomnessRequestNotFound", CategoryState, "no pending randomness request")
	ErrSponsorNotFound            = newError(6040, "SponsorNotFound", CategoryValidation, "sponsor does not exist")
	ErrSponsorInactive            = newError(6041, "SponsorInactive", CategoryValidation, "sponsor is not active")
	ErrAccountNotFound            = newError(6042, "AccountNotFound", CategoryValidation, "custody account does not exist")
	ErrAccountNotEmpty            = newError(6043, "AccountNotEmpty", CategoryState, "custody account still holds assets")
	ErrTicketOutOfRange           = newError(6044, "TicketOutOfRange", CategoryValidation, "ticket index is beyond the entrant count")
	ErrTooManyTickets             = newError(6045, "TooManyTickets", CategoryValidation, "ticket amount exceeds raffle capacity")
	ErrMalformedRandomness        = &RaffleError{
		Code:     6046,
		Name:     "MalformedRandomness",
		Message:  "oracle returned a seed that is not 32 bytes",
		Category: CategoryState,
		Fatal:    true,
	}
	ErrRaffleAlreadyExists  = newError(6047, "RaffleAlreadyExists", CategoryState, "a raffle already exists for this entrants ledger")
	ErrProgramConfigMissing = newError(6048, "ProgramConfigMissing", CategoryState, "program config has not been initialized")
)

// IsFatal reports whether err carries a fatal raffle error
func IsFatal(err error) bool {
	var re *RaffleError
	return errors.As(err, &re) && re.Fatal
}
