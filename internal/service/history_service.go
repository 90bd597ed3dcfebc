package service

import (
	"context"
	"errors"

	"sygl/internal/entity/converter"
	"sygl/internal/entity/dto"
	"sygl/internal/model"

	"gorm.io/gorm"
)

// HistoryService 查询调用者自己的生成记录
type HistoryService struct {
	repo model.Repository
}

func NewHistoryService(repo model.Repository) *HistoryService {
	return &HistoryService{repo: repo}
}

// ListGenerations 分页列出用户的生成记录
func (s *HistoryService) ListGenerations(ctx context.Context, userID uint, query dto.GenerationQuery) (*dto.GenerationListResponse, error) {
	query.UserID = userID
	records, meta, err := s.repo.ListGenerations(ctx, &query)
	if err != nil {
		return nil, storeError("list generations", 0, err)
	}
	return &dto.GenerationListResponse{
		Generations: converter.GenerationsToItems(records),
		Meta:        meta,
	}, nil
}

// GetGeneration 返回单条记录；不属于该用户的记录同样视为不存在
func (s *HistoryService) GetGeneration(ctx context.Context, userID, id uint) (*dto.GenerationDetailResponse, error) {
	record, err := s.repo.GetGeneration(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGenerationNotFound
		}
		return nil, storeError("load generation", id, err)
	}
	if record.UserID != userID {
		return nil, ErrGenerationNotFound
	}
	return &dto.GenerationDetailResponse{Generation: converter.GenerationToItem(record)}, nil
}
