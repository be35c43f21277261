package application

import (
	"context"

	"github.com/google/uuid"
)

// AuctionService defines application interface layer of auction module
// exposes uses cases to external layer, aka infra
type AuctionService interface {
	// PlaceBid admits or rejects one bid. Rejections are domain errors.
	PlaceBid(ctx context.Context, cmd PlaceBidDTO) (*BidResultDTO, error)
	GetAuctionState(ctx context.Context, auctionID uuid.UUID) (*AuctionStateDTO, error)
	ListActiveAuctions(ctx context.Context) ([]*AuctionStateDTO, error)
	ListBids(ctx context.Context, auctionID uuid.UUID) ([]*BidDTO, error)
	CheckAndClose(ctx context.Context, auctionID uuid.UUID) (bool, error)
	Annul(ctx context.Context, auctionID uuid.UUID) error
}

// concrete implementation of AuctionService (struct)
type auctionService struct {
	placeBidUC   *PlaceBidUseCase
	getStateUC   *GetAuctionStateUseCase
	listActiveUC *ListActiveAuctionsUseCase
	listBidsUC   *ListBidsUseCase
	lifecycle    *Lifecycle
}

func NewAuctionService(placeBidUC *PlaceBidUseCase,
	getStateUC *GetAuctionStateUseCase,
	listActiveUC *ListActiveAuctionsUseCase,
	listBidsUC *ListBidsUseCase,
	lifecycle *Lifecycle) AuctionService {
	return &auctionService{
		placeBidUC:   placeBidUC,
		getStateUC:   getStateUC,
		listActiveUC: listActiveUC,
		listBidsUC:   listBidsUC,
		lifecycle:    lifecycle,
	}
}

// PlaceBid implements AuctionService.
func (as *auctionService) PlaceBid(ctx context.Context, cmd PlaceBidDTO) (*BidResultDTO, error) {
	return as.placeBidUC.Execute(ctx, cmd)
}

func (as *auctionService) GetAuctionState(ctx context.Context, auctionID uuid.UUID) (*AuctionStateDTO, error) {
	return as.getStateUC.Execute(ctx, auctionID)
}

func (as *auctionService) ListActiveAuctions(ctx context.Context) ([]*AuctionStateDTO, error) {
	return as.listActiveUC.Execute(ctx)
}

func (as *auctionService) ListBids(ctx context.Context, auctionID uuid.UUID) ([]*BidDTO, error) {
	return as.listBidsUC.Execute(ctx, auctionID)
}

func (as *auctionService) CheckAndClose(ctx context.Context, auctionID uuid.UUID) (bool, error) {
	return as.lifecycle.CheckAndClose(ctx, auctionID)
}

func (as *auctionService) Annul(ctx context.Context, auctionID uuid.UUID) error {
	return as.lifecycle.Annul(ctx, auctionID)
}
