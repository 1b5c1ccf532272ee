package smssvc

import (
	"context"
	"net/url"
	"testing"

	"github.com/sendgrid/rest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/campus/core"
)

func TestServiceMock_Send(t *testing.T) {
	svc := NewServiceMock(core.NewTestConfig())
	ctx := context.Background()

	require.NoError(t, svc.Send(ctx, &core.SMSMessage{To: "+254 712 345 678", BodyStr: "hi"}))
	require.Len(t, svc.SentMessages(), 1)
	assert.Equal(t, "+254712345678", svc.SentMessages()[0].To)
	assert.Equal(t, "hi", svc.SentMessages()[0].Content)

	assert.Error(t, svc.Send(ctx, &core.SMSMessage{To: "nope", BodyStr: "hi"}))
	assert.Error(t, svc.Send(ctx, &core.SMSMessage{To: "0712345678"}))

	svc.FailAll(true)
	assert.Error(t, svc.Send(ctx, &core.SMSMessage{To: "0712345678", BodyStr: "hi"}))
	svc.FailAll(false)
	assert.NoError(t, svc.Send(ctx, &core.SMSMessage{To: "0712345678", BodyStr: "hi"}))
	assert.Len(t, svc.SentMessages(), 2)
}

func TestGatewayService_Send(t *testing.T) {
	defer func() { sendFunc = rest.SendWithContext }()
	conf := core.NewTestConfig()
	conf.SMS = core.SMSConfig{BaseURL: "https://sms.test", APIKey: "key", Username: "campus", SenderID: "CAMPUS"}
	svc := NewGatewayService(conf)

	tests := []struct {
		name    string
		status  int
		body    string
		wantErr bool
	}{
		{
			name:   "sent",
			status: 201,
			body:   `{"SMSMessageData":{"Message":"Sent to 1/1","Recipients":[{"number":"+254712345678","status":"Success","statusCode":101}]}}`,
		},
		{
			name:    "rejected recipient",
			status:  201,
			body:    `{"SMSMessageData":{"Message":"Sent to 0/1","Recipients":[{"number":"+254712345678","status":"InvalidPhoneNumber","statusCode":403}]}}`,
			wantErr: true,
		},
		{name: "no recipients", status: 201, body: `{"SMSMessageData":{"Message":"InvalidSenderId","Recipients":[]}}`, wantErr: true},
		{name: "http error", status: 401, body: "unauthorized", wantErr: true},
		{name: "bad json", status: 201, body: "<html>", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got rest.Request
			sendFunc = func(_ context.Context, req rest.Request) (*rest.Response, error) {
				got = req
				return &rest.Response{StatusCode: tt.status, Body: tt.body}, nil
			}

			err := svc.Send(context.Background(), &core.SMSMessage{To: "0712 345 678", BodyStr: "hello"})
			if (err != nil) != tt.wantErr {
				t.Fatalf("Send() error = %v, wantErr %v", err, tt.wantErr)
			}

			assert.Equal(t, "https://sms.test/version1/messaging", got.BaseURL)
			assert.Equal(t, "key", got.Headers["apiKey"])
			form, err := url.ParseQuery(string(got.Body))
			require.NoError(t, err)
			assert.Equal(t, "0712345678", form.Get("to"))
			assert.Equal(t, "hello", form.Get("message"))
			assert.Equal(t, "CAMPUS", form.Get("from"))
			assert.Equal(t, "campus", form.Get("username"))
		})
	}
}
