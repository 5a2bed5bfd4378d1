package utils

import (
	"context"

	"github.com/coraeos/obari_backend/appctx"
)

func GetOrgIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, appctx.ContextKeyOrgId)
}

func SetOrgIdInContext(ctx context.Context, orgId string) context.Context {
	return appctx.Set(ctx, appctx.ContextKeyOrgId, orgId)
}

func GetUsernameFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, appctx.ContextKeyUsername)
}

func SetUsernameInContext(ctx context.Context, username string) context.Context {
	return appctx.Set(ctx, appctx.ContextKeyUsername, username)
}

func GetUserIdFromContext(ctx context.Context) (int, bool) {
	return appctx.GetInt(ctx, appctx.ContextKeyUserId)
}

func SetUserIdInContext(ctx context.Context, userId int) context.Context {
	return appctx.Set(ctx, appctx.ContextKeyUserId, userId)
}

func GetCorrelationIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, appctx.ContextKeyCorrelationId)
}

func SetCorrelationIdInContext(ctx context.Context, cid string) context.Context {
	return appctx.Set(ctx, appctx.ContextKeyCorrelationId, cid)
}

func SetTokenInContext(ctx context.Context, token string) context.Context {
	return appctx.Set(ctx, appctx.ContextKeyToken, token)
}

func SetIsAdminInContext(ctx context.Context, isAdmin bool) context.Context {
	return appctx.Set(ctx, appctx.ContextKeyIsAdmin, isAdmin)
}

func SetSkipOrgScopeInContext(ctx context.Context, skip bool) context.Context {
	return appctx.Set(ctx, appctx.ContextKeySkipOrgScope, skip)
}
