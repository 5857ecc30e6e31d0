package grpc

import (
	"context"
	"errors"
	"testing"

	"github.com/litetable/litetable-kvs/internal/litetable"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestKvs_GetRanges(t *testing.T) {
	page := &litetable.Page[litetable.Value]{
		Rows: []litetable.RowResult[litetable.Value]{{Row: []byte("a")}},
		Token: litetable.Token{
			NextStart: []byte("a\x00"),
			HasMore:   true,
		},
	}

	tests := map[string]struct {
		request         *GetRangesRequest
		mockSetup       func(m *Mockoperations)
		expectedCode    codes.Code
		expectedMessage string
	}{
		"missing table and ranges": {
			request:         &GetRangesRequest{},
			expectedCode:    codes.InvalidArgument,
			expectedMessage: "table required",
		},
		"invalid range": {
			request: &GetRangesRequest{
				Table:  "t",
				Ranges: []Range{{BatchHint: -1}},
			},
			expectedCode:    codes.InvalidArgument,
			expectedMessage: "invalid range",
		},
		"unknown table": {
			request: &GetRangesRequest{Table: "t", Ranges: []Range{{}}},
			mockSetup: func(m *Mockoperations) {
				m.EXPECT().
					GetFirstBatchForRanges(gomock.Any(), "t", gomock.Len(1), uint64(0)).
					Return(nil, litetable.Errorf(litetable.ErrTableNotFound, "table %q", "t"))
			},
			expectedCode:    codes.NotFound,
			expectedMessage: "failed to read ranges",
		},
		"backend failure is retryable": {
			request: &GetRangesRequest{Table: "t", Ranges: []Range{{}}},
			mockSetup: func(m *Mockoperations) {
				m.EXPECT().
					GetFirstBatchForRanges(gomock.Any(), "t", gomock.Any(), uint64(0)).
					Return(nil, litetable.WrapIO(errors.New("disk"), "scan failed"))
			},
			expectedCode:    codes.Unavailable,
			expectedMessage: "disk",
		},
		"fault is internal": {
			request: &GetRangesRequest{Table: "t", Ranges: []Range{{}}},
			mockSetup: func(m *Mockoperations) {
				m.EXPECT().
					GetFirstBatchForRanges(gomock.Any(), "t", gomock.Any(), uint64(0)).
					Return(nil, litetable.Errorf(litetable.ErrBoundsViolation, "row out of range"))
			},
			expectedCode:    codes.Internal,
			expectedMessage: "row out of range",
		},
		"successful request": {
			request: &GetRangesRequest{
				Table:     "t",
				Ranges:    []Range{{Start: []byte("a"), Columns: [][]byte{[]byte("v")}, BatchHint: 1}},
				Timestamp: 7,
			},
			mockSetup: func(m *Mockoperations) {
				m.EXPECT().
					GetFirstBatchForRanges(gomock.Any(), "t", gomock.Any(), uint64(7)).
					DoAndReturn(func(_ context.Context, _ string, reqs []litetable.RangeRequest,
						_ uint64) ([]*litetable.Page[litetable.Value], error) {
						require.Len(t, reqs, 1)
						require.Equal(t, []byte("a"), reqs[0].StartInclusive())
						require.Equal(t, 1, reqs[0].BatchHint())
						require.False(t, reqs[0].ContainsColumn([]byte("w")))
						return []*litetable.Page[litetable.Value]{page}, nil
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

			resp, err := svc.GetRanges(context.Background(), tc.request)
			if tc.expectedCode == codes.OK {
				req.NoError(err)
				req.Equal([]*litetable.Page[litetable.Value]{page}, resp.Pages)
				return
			}
			req.Error(err)
			req.Nil(resp)
			st, ok := status.FromError(err)
			req.True(ok)
			req.Equal(tc.expectedCode, st.Code())
			req.Contains(st.Message(), tc.expectedMessage)
		})
	}
}

func TestKvs_GetRows(t *testing.T) {
	rows := []litetable.RowResult[litetable.Value]{{Row: []byte("r")}}

	tests := map[string]struct {
		request      *GetRowsRequest
		mockSetup    func(m *Mockoperations)
		expectedCode codes.Code
	}{
		"missing rows": {
			request:      &GetRowsRequest{Table: "t"},
			expectedCode: codes.InvalidArgument,
		},
		"all columns": {
			request: &GetRowsRequest{Table: "t", Rows: [][]byte{[]byte("r")}},
			mockSetup: func(m *Mockoperations) {
				m.EXPECT().
					GetRows(gomock.Any(), "t", [][]byte{[]byte("r")}, litetable.AllColumns(),
						uint64(0)).
					Return(rows, nil)
			},
			expectedCode: codes.OK,
		},
		"selected columns": {
			request: &GetRowsRequest{
				Table:     "t",
				Rows:      [][]byte{[]byte("r")},
				Columns:   [][]byte{[]byte("v")},
				Timestamp: 3,
			},
			mockSetup: func(m *Mockoperations) {
				m.EXPECT().
					GetRows(gomock.Any(), "t", gomock.Any(),
						litetable.SelectColumns([]byte("v")), uint64(3)).
					Return(rows, nil)
			},
			expectedCode: codes.OK,
		},
		"invalid row name": {
			request: &GetRowsRequest{Table: "t", Rows: [][]byte{{}}},
			mockSetup: func(m *Mockoperations) {
				m.EXPECT().
					GetRows(gomock.Any(), "t", gomock.Any(), gomock.Any(), uint64(0)).
					Return(nil, litetable.Errorf(litetable.ErrInvalidName, "empty row name"))
			},
			expectedCode: codes.InvalidArgument,
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

			resp, err := svc.GetRows(context.Background(), tc.request)
			if tc.expectedCode == codes.OK {
				req.NoError(err)
				req.Equal(rows, resp.Rows)
				return
			}
			st, ok := status.FromError(err)
			req.True(ok)
			req.Equal(tc.expectedCode, st.Code())
		})
	}
}
