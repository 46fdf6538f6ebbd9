package streams

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dynamodbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	streamtypes "github.com/aws/aws-sdk-go-v2/service/dynamodbstreams/types"
)

// convertStreamAttributeValue converts a single stream-API attribute value to
// the DynamoDB service API representation so attributevalue can unmarshal it.
func convertStreamAttributeValue(val streamtypes.AttributeValue) (dynamodbtypes.AttributeValue, error) {
	switch v := val.(type) {
	case *streamtypes.AttributeValueMemberS:
		return &dynamodbtypes.AttributeValueMemberS{Value: v.Value}, nil
	case *streamtypes.AttributeValueMemberN:
		return &dynamodbtypes.AttributeValueMemberN{Value: v.Value}, nil
	case *streamtypes.AttributeValueMemberB:
		return &dynamodbtypes.AttributeValueMemberB{Value: v.Value}, nil
	case *streamtypes.AttributeValueMemberBOOL:
		return &dynamodbtypes.AttributeValueMemberBOOL{Value: v.Value}, nil
	case *streamtypes.AttributeValueMemberNULL:
		return &dynamodbtypes.AttributeValueMemberNULL{Value: v.Value}, nil
	case *streamtypes.AttributeValueMemberSS:
		return &dynamodbtypes.AttributeValueMemberSS{Value: v.Value}, nil
	case *streamtypes.AttributeValueMemberNS:
		return &dynamodbtypes.AttributeValueMemberNS{Value: v.Value}, nil
	case *streamtypes.AttributeValueMemberBS:
		return &dynamodbtypes.AttributeValueMemberBS{Value: v.Value}, nil
	case *streamtypes.AttributeValueMemberM:
		mapVal, err := ConvertStreamImage(v.Value)
		if err != nil {
			return nil, fmt.Errorf("error converting map attribute: %w", err)
		}
		return &dynamodbtypes.AttributeValueMemberM{Value: mapVal}, nil
	case *streamtypes.AttributeValueMemberL:
		listVal := make([]dynamodbtypes.AttributeValue, len(v.Value))
		for i, item := range v.Value {
			converted, err := convertStreamAttributeValue(item)
			if err != nil {
				return nil, fmt.Errorf("error converting list item at index %d: %w", i, err)
			}
			listVal[i] = converted
		}
		return &dynamodbtypes.AttributeValueMemberL{Value: listVal}, nil
	default:
		return nil, fmt.Errorf("unsupported attribute type: %T", val)
	}
}

// ConvertStreamImage converts a stream record image (NewImage or OldImage) to
// a DynamoDB service API item.
func ConvertStreamImage(image map[string]streamtypes.AttributeValue) (map[string]dynamodbtypes.AttributeValue, error) {
	item := make(map[string]dynamodbtypes.AttributeValue, len(image))
	for k, v := range image {
		converted, err := convertStreamAttributeValue(v)
		if err != nil {
			return nil, fmt.Errorf("error converting attribute %s: %w", k, err)
		}
		item[k] = converted
	}
	return item, nil
}

// UnmarshalStreamImage unmarshals a stream record image into a target struct.
func UnmarshalStreamImage[T any](image map[string]streamtypes.AttributeValue, out *T) error {
	if image == nil {
		return fmt.Errorf("stream image is nil")
	}
	item, err := ConvertStreamImage(image)
	if err != nil {
		return fmt.Errorf("failed to convert stream image to DynamoDB item: %w", err)
	}
	return attributevalue.UnmarshalMap(item, out)
}
