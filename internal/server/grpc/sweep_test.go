package grpc

import (
	"context"
	"testing"

	"github.com/litetable/litetable-kvs/internal/litetable"
	"github.com/litetable/litetable-kvs/internal/reaper"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestKvs_Sweep(t *testing.T) {
	tests := map[string]struct {
		request      *SweepRequest
		mockSetup    func(m *Mockoperations)
		expectedCode codes.Code
	}{
		"missing table and timestamp": {
			request:      &SweepRequest{},
			expectedCode: codes.InvalidArgument,
		},
		"disabled": {
			request: &SweepRequest{Table: "t", Before: 5},
			mockSetup: func(m *Mockoperations) {
				m.EXPECT().Sweep(gomock.Any(), "t", uint64(5)).
					Return(litetable.Errorf(litetable.ErrInvalidRequest, "sweeping is disabled"))
			},
			expectedCode: codes.InvalidArgument,
		},
		"shutting down": {
			request: &SweepRequest{Table: "t", Before: 5},
			mockSetup: func(m *Mockoperations) {
				m.EXPECT().Sweep(gomock.Any(), "t", uint64(5)).Return(reaper.ErrStopped)
			},
			expectedCode: codes.Unavailable,
		},
		"queued": {
			request: &SweepRequest{Table: "t", Before: 5},
			mockSetup: func(m *Mockoperations) {
				m.EXPECT().Sweep(gomock.Any(), "t", uint64(5)).Return(nil)
			},
			expectedCode: codes.OK,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			req := require.New(t)

			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			mockOps := NewMockoperations(ctrl)
			if tc.mockSetup != nil {
				tc.mockSetup(mockOps)
			}

			svc := &kvs{
				operations: mockOps,
			}

			resp, err := svc.Sweep(context.Background(), tc.request)
			if tc.expectedCode == codes.OK {
				req.NoError(err)
				req.NotNil(resp)
				return
			}
			st, ok := status.FromError(err)
			req.True(ok)
			req.Equal(tc.expectedCode, st.Code())
		})
	}
}

func TestKvs_GetTableRanges(t *testing.T) {
	page := &litetable.Page[litetable.Value]{}

	tests := map[string]struct {
		request      *GetTableRangesRequest
		mockSetup    func(m *Mockoperations)
		expectedCode codes.Code
	}{
		"no tables": {
			request:      &GetTableRangesRequest{},
			expectedCode: codes.InvalidArgument,
		},
		"invalid range": {
			request: &GetTableRangesRequest{
				Tables: map[string][]Range{"t": {{BatchHint: -1}}},
			},
			expectedCode: codes.InvalidArgument,
		},
		"every table": {
			request: &GetTableRangesRequest{
				Tables:    map[string][]Range{"t": {{}}, "u": {{}, {Reverse: true}}},
				Timestamp: 4,
			},
			mockSetup: func(m *Mockoperations) {
				m.EXPECT().
					GetFirstBatchForTables(gomock.Any(), gomock.Any(), uint64(4)).
					DoAndReturn(func(_ context.Context, reqs map[string][]litetable.RangeRequest,
						_ uint64) (map[string][]*litetable.Page[litetable.Value], error) {
						require.Len(t, reqs["t"], 1)
						require.Len(t, reqs["u"], 2)
						require.True(t, reqs["u"][1].IsReverse())
						return map[string][]*litetable.Page[litetable.Value]{
							"t": {page},
							"u": {page, page},
						}, nil
					})
			},
			expectedCode: codes.OK,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			req := require.New(t)

			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			mockOps := NewMockoperations(ctrl)
			if tc.mockSetup != nil {
				tc.mockSetup(mockOps)
			}

			svc := &kvs{
				operations: mockOps,
			}

			resp, err := svc.GetTableRanges(context.Background(), tc.request)
			if tc.expectedCode == codes.OK {
				req.NoError(err)
				req.Len(resp.Tables["u"], 2)
				return
			}
			st, ok := status.FromError(err)
			req.True(ok)
			req.Equal(tc.expectedCode, st.Code())
		})
	}
}
