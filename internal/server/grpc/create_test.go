package grpc

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestKvs_CreateTable(t *testing.T) {
	tests := map[string]struct {
		request         *CreateTableRequest
		mockSetup       func(m *Mockoperations)
		expectedCode    codes.Code
		expectedMessage string
	}{
		"missing table field": {
			request: &CreateTableRequest{},
			mockSetup: func(m *Mockoperations) {
				// No call expected
			},
			expectedCode:    codes.InvalidArgument,
			expectedMessage: "table required",
		},
		"internal error from CreateTable": {
			request: &CreateTableRequest{Table: "events"},
			mockSetup: func(m *Mockoperations) {
				m.EXPECT().
					CreateTable(gomock.Any(), "events").
					Return(errors.New("backend error"))
			},
			expectedCode:    codes.Internal,
			expectedMessage: "failed to create table: backend error",
		},
		"successful request": {
			request: &CreateTableRequest{Table: "events"},
			mockSetup: func(m *Mockoperations) {
				m.EXPECT().
					CreateTable(gomock.Any(), "events").
					Return(nil)
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

			resp, err := svc.CreateTable(context.Background(), tc.request)

			if tc.expectedCode == codes.OK {
				req.NoError(err)
				req.NotNil(resp)
			} else {
				req.Error(err)
				st, ok := status.FromError(err)
				req.True(ok)
				req.Equal(tc.expectedCode, st.Code())
				req.Contains(st.Message(), tc.expectedMessage)
			}
		})
	}
}
