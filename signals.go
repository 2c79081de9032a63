package facet

import (
	"context"
	"reflect"
	"time"

	"github.com/zoobzio/capitan"
)

// Signals for facet events.
var (
	SignalDescriptorBuilt  = capitan.NewSignal("facet.descriptor.built", "Type descriptor constructed")
	SignalDescriptorFailed = capitan.NewSignal("facet.descriptor.failed", "Type descriptor construction failed")
	SignalCacheHit         = capitan.NewSignal("facet.cache.hit", "Descriptor served from cache")
	SignalCoerceFailed     = capitan.NewSignal("facet.coerce.failed", "Value could not be coerced")
)

// Keys for typed event data.
var (
	KeyTypeName      = capitan.NewStringKey("type_name")
	KeyShape         = capitan.NewStringKey("shape")
	KeyRoles         = capitan.NewStringKey("roles")
	KeyProperty      = capitan.NewStringKey("property")
	KeyTargetType    = capitan.NewStringKey("target_type")
	KeyPropertyCount = capitan.NewIntKey("property_count")
	KeyRoleCount     = capitan.NewIntKey("role_count")
	KeyDuration      = capitan.NewDurationKey("duration")
	KeyError         = capitan.NewErrorKey("error")
)

// emitDescriptorBuilt emits an event when a descriptor is constructed.
func emitDescriptorBuilt(ctx context.Context, typeName string, shape Shape, props, roles int, duration time.Duration) {
	capitan.Emit(ctx, SignalDescriptorBuilt,
		KeyTypeName.Field(typeName),
		KeyShape.Field(shape.String()),
		KeyPropertyCount.Field(props),
		KeyRoleCount.Field(roles),
		KeyDuration.Field(duration),
	)
}

// emitDescriptorFailed emits an event when construction fails.
func emitDescriptorFailed(ctx context.Context, typeName string, err error) {
	capitan.Error(ctx, SignalDescriptorFailed,
		KeyTypeName.Field(typeName),
		KeyError.Field(err),
	)
}

// emitCacheHit emits an event when a cached descriptor is reused.
func emitCacheHit(ctx context.Context, typeName string, roles RoleKind) {
	capitan.Emit(ctx, SignalCacheHit,
		KeyTypeName.Field(typeName),
		KeyRoles.Field(roles.String()),
	)
}

// emitCoerceFailed emits an event when a property value cannot be coerced.
func emitCoerceFailed(ctx context.Context, property string, target reflect.Type, err error) {
	capitan.Error(ctx, SignalCoerceFailed,
		KeyProperty.Field(property),
		KeyTargetType.Field(typeString(target)),
		KeyError.Field(err),
	)
}
