package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/assetstore/pkg/asset"
	"github.com/mesh-intelligence/assetstore/pkg/types"
)

func newPropertyCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "property",
		Short: "Manage media package properties",
	}
	cmd.AddCommand(newPropertySetCmd(a))
	return cmd
}

func newPropertySetCmd(a *app) *cobra.Command {
	var typ string
	cmd := &cobra.Command{
		Use:   "set <media-package-id> <namespace:name> <value>",
		Short: "Insert or overwrite a property",
		Long: `Set a property of a media package. The value type comes from --type, else
from the registered definition, else it is inferred from the text.

Example:
  assetstore property set mp-1 org.opencast.agent:agent capture-1
  assetstore property set mp-1 org.opencast.stats:count 3 --type long`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			org, err := a.scope(store)
			if err != nil {
				return err
			}

			def, value, err := parseAssignment(store.Registry(), args[1], args[2], typ)
			if err != nil {
				return err
			}
			p, err := def.Of(args[0], value)
			if err != nil {
				return err
			}
			ok, err := org.SetProperty(cmd.Context(), p)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: media package %s has no snapshot", types.ErrNotFound, args[0])
			}
			return printJSON(cmd.OutOrStdout(), p)
		},
	}
	cmd.Flags().StringVar(&typ, "type", "", "value type: string, long or boolean")
	return cmd
}

// parseSlot splits "namespace:name". The namespace may itself contain dots
// but not colons.
func parseSlot(s string) (types.PropertyName, error) {
	ns, name, ok := strings.Cut(s, ":")
	if !ok || ns == "" || name == "" {
		return types.PropertyName{}, fmt.Errorf("%w: %q is not namespace:name", types.ErrInvalidName, s)
	}
	return types.PropertyName{Namespace: ns, Name: name}, nil
}

// resolveDefinition picks the type of slot: explicit typ first, then the
// registry, then inference from text.
func resolveDefinition(r *asset.Registry, slot types.PropertyName, text, typ string) (types.PropertyDefinition, error) {
	def := types.PropertyDefinition{Namespace: slot.Namespace, Name: slot.Name}
	switch {
	case typ != "":
		vt, err := types.ParseValueType(typ)
		if err != nil {
			return types.PropertyDefinition{}, err
		}
		def.ValueType = vt
	default:
		if reg, ok := r.Lookup(slot.Namespace, slot.Name); ok {
			return reg, nil
		}
		def.ValueType = inferType(text)
	}
	return def, nil
}

func inferType(text string) types.ValueType {
	if text == "true" || text == "false" {
		return types.ValueTypeBoolean
	}
	if _, err := strconv.ParseInt(text, 10, 64); err == nil {
		return types.ValueTypeLong
	}
	return types.ValueTypeString
}

// parseAssignment resolves slot text and value text into a definition and
// a typed value.
func parseAssignment(r *asset.Registry, slotText, valueText, typ string) (types.PropertyDefinition, types.Value, error) {
	slot, err := parseSlot(slotText)
	if err != nil {
		return types.PropertyDefinition{}, types.Value{}, err
	}
	def, err := resolveDefinition(r, slot, valueText, typ)
	if err != nil {
		return types.PropertyDefinition{}, types.Value{}, err
	}
	v, err := types.ParseValue(def.ValueType, valueText)
	if err != nil {
		return types.PropertyDefinition{}, types.Value{}, err
	}
	return def, v, nil
}
